package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/tile-brawl/internal/api"
	"github.com/annel0/tile-brawl/internal/config"
	"github.com/annel0/tile-brawl/internal/eventbus"
	"github.com/annel0/tile-brawl/internal/game"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/observability"
	"github.com/annel0/tile-brawl/internal/storage"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $GAME_CONFIG)")
	layoutFile := flag.String("layout", "", "текстовая раскладка уровня вместо генератора")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(*configPath, *layoutFile); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(configPath, layoutFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if layoutFile != "" {
		cfg.Level.LayoutFile = layoutFile
	}
	logging.Info("🎮 Запуск tile-brawl %s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry := observability.ShutdownFunc(observability.Noop)
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, version)
		if err != nil {
			logging.Warn("⚠️ Телеметрия отключена: %v", err)
			shutdownTelemetry = observability.Noop
		}
	}
	defer shutdownTelemetry(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === ХРАНИЛИЩА ===
	levels, err := storage.NewLevelStorage(cfg.Level.StoragePath)
	if err != nil {
		logging.Warn("⚠️ Кеш уровней недоступен: %v", err)
		levels = nil
	} else {
		defer levels.Close()
	}

	lvl, err := loadLevel(cfg.Level, levels)
	if err != nil {
		return fmt.Errorf("уровень: %w", err)
	}

	positions, err := openPositions(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("хранилище позиций: %w", err)
	}
	defer positions.Close()

	// === ШИНА СОБЫТИЙ ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("шина событий: %w", err)
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		return err
	}
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start(5 * time.Second)
	defer busMetrics.Stop()

	_, err = bus.Subscribe(ctx, eventbus.Filter{Types: []string{eventbus.TypeConsolePrint}}, func(_ context.Context, ev *eventbus.Envelope) {
		var p eventbus.ConsolePrintPayload
		if ev.Decode(&p) == nil {
			fmt.Printf("💬 %s: %s\n", p.NPC, p.Message)
		}
	})
	if err != nil {
		return err
	}

	// === ИГРА ===
	g, err := game.New(cfg, lvl, game.Deps{
		Asker:      newAsker(cfg.Console),
		Bus:        bus,
		Registerer: reg,
	})
	if err != nil {
		return err
	}
	defer g.Close()

	player := cfg.Level.PlayerName
	if cell, found, err := positions.Load(ctx, player); err != nil {
		logging.Warn("⚠️ Позиция игрока %s не загружена: %v", player, err)
	} else if found {
		if err := g.PlacePlayer(cell); err != nil {
			logging.Warn("⚠️ Сохранённая позиция %v недоступна: %v", cell, err)
		} else {
			logging.Info("📍 Игрок %s восстановлен в ячейке %v", player, cell)
		}
	}

	// === HTTP ===
	gin.SetMode(gin.ReleaseMode)
	inspector, err := api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Source:   g,
		Bus:      bus,
		Registry: reg,
		Service:  cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return err
	}
	if err := inspector.Start(); err != nil {
		return err
	}

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка сервера метрик: %v", err)
		}
	}()

	fmt.Println(usage)
	go func() {
		if err := readInput(ctx, os.Stdin, os.Stdout, g); err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn("⚠️ Чтение ввода: %v", err)
		}
	}()

	// === ЦИКЛ ===
	runErr := g.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		logging.Info("📡 Получен сигнал завершения")
		runErr = nil
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cell, ok := g.PlayerCell(); ok {
		if err := positions.Save(shutdownCtx, player, cell); err != nil {
			logging.Error("❌ Позиция игрока не сохранена: %v", err)
		} else {
			logging.Info("💾 Позиция игрока %s сохранена: %v", player, cell)
		}
	}
	if err := inspector.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки инспектора: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	logging.Info("👋 Сервер остановлен")
	return runErr
}
