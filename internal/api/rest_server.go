// Package api инспектор арены по HTTP: снимки сущностей, ячеек индекса,
// тайлов и консолей, плюс /health и /metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/tile-brawl/internal/eventbus"
	"github.com/annel0/tile-brawl/internal/game"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/middleware"
	"github.com/annel0/tile-brawl/internal/vec"
)

// SnapshotSource источник снимков, обычно *game.Game
type SnapshotSource interface {
	Snapshot() *game.Snapshot
}

// RestServer представляет REST API инспектора
type RestServer struct {
	router     *gin.Engine
	source     SnapshotSource
	bus        eventbus.EventBus
	port       string
	metrics    *ServerMetrics
	httpServer *http.Server
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // адрес для запуска сервера, ":8080" по умолчанию
	Source   SnapshotSource       // снимки игры
	Bus      eventbus.EventBus    // необязательно, для статистики шины в /health
	Registry *prometheus.Registry // метрики для /metrics; nil означает дефолтный регистр
	Service  string               // имя сервиса для трассировки и метрик
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.Source == nil {
		return nil, errors.New("api: нет источника снимков")
	}
	if config.Port == "" {
		config.Port = ":8080"
	}
	if config.Service == "" {
		config.Service = "inspector"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.Service))
	router.Use(middleware.NewRequestLogger().Handler())

	var registerer prometheus.Registerer
	var gatherer prometheus.Gatherer
	if config.Registry != nil {
		registerer, gatherer = config.Registry, config.Registry
	}
	promMw, err := middleware.NewPrometheusMiddleware("inspector", registerer)
	if err != nil {
		return nil, err
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	server := &RestServer{
		router:  router,
		source:  config.Source,
		bus:     config.Bus,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logging.GetComponentLogger("api"),
	}
	server.setupRoutes()
	return server, nil
}

// setupRoutes настраивает маршруты инспектора
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	inspect := rs.router.Group("/inspect")
	{
		inspect.GET("/state", rs.handleState)
		inspect.GET("/entities", rs.handleEntities)
		inspect.GET("/entities/:id", rs.handleEntity)
		inspect.GET("/cells", rs.handleCell)
		inspect.GET("/tiles", rs.handleTiles)
		inspect.GET("/consoles", rs.handleConsoles)
	}
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler { return rs.router }

func (rs *RestServer) snapshot(c *gin.Context) (*game.Snapshot, bool) {
	snap := rs.source.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "Снимок ещё не готов"})
		return nil, false
	}
	return snap, true
}

// handleHealth возвращает состояние процесса и номер последнего тика
func (rs *RestServer) handleHealth(c *gin.Context) {
	data := gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"host":   rs.metrics.Collect(),
	}
	if snap := rs.source.Snapshot(); snap != nil {
		data["tick"] = snap.Tick
		data["state"] = snap.State
	}
	if rs.bus != nil {
		data["eventbus"] = rs.bus.Metrics()
	}
	c.JSON(http.StatusOK, data)
}

func (rs *RestServer) handleState(c *gin.Context) {
	snap, ok := rs.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние арены",
		Data: gin.H{
			"tick":   snap.Tick,
			"state":  snap.State,
			"player": snap.Player,
			"index":  snap.Index,
		},
	})
}

// handleEntities список сущностей; ?kind= фильтрует по виду
func (rs *RestServer) handleEntities(c *gin.Context) {
	snap, ok := rs.snapshot(c)
	if !ok {
		return
	}
	kind := c.Query("kind")
	out := make([]game.EntityView, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сущности", Data: out})
}

func (rs *RestServer) handleEntity(c *gin.Context) {
	snap, ok := rs.snapshot(c)
	if !ok {
		return
	}
	e, found := snap.Entity(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Сущность не найдена"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сущность", Data: e})
}

// handleCell сущности в ячейке ?x=&y=
func (rs *RestServer) handleCell(c *gin.Context) {
	x, errX := strconv.Atoi(c.Query("x"))
	y, errY := strconv.Atoi(c.Query("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Параметры x и y должны быть целыми"})
		return
	}
	snap, ok := rs.snapshot(c)
	if !ok {
		return
	}
	cell := vec.Vec2{X: x, Y: y}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Ячейка",
		Data: gin.H{
			"cell":     cell,
			"entities": snap.CellEntities(cell),
		},
	})
}

func (rs *RestServer) handleTiles(c *gin.Context) {
	snap, ok := rs.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тайлы", Data: snap.Tiles})
}

func (rs *RestServer) handleConsoles(c *gin.Context) {
	snap, ok := rs.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Консоли NPC", Data: snap.Consoles})
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("❌ Ошибка HTTP сервера инспектора: %v", err)
		}
	}()

	rs.logger.Info("✅ Инспектор запущен на http://localhost%s", rs.port)
	rs.logger.Info("📋 Эндпоинты: /health /metrics /inspect/{state,entities,cells,tiles,consoles}")
	return nil
}

// Stop останавливает HTTP сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rs.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	rs.logger.Info("🛑 Инспектор остановлен")
	return nil
}
