package game

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/tile-brawl/internal/world"
)

// Metrics метрики игрового цикла
//
// * tile_brawl_tick_duration_seconds, histogram
// * tile_brawl_ticks_total, counter
// * tile_brawl_entities{kind}, gauge
// * tile_brawl_index_cells / tile_brawl_index_entries, gauge
// * tile_brawl_index_ops_total{op}, counter (вставки и удаления индекса)
// * tile_brawl_damage_events_total, counter
// * tile_brawl_nav_orders_total{result}, counter
// * tile_brawl_console_lines_total, counter
// * tile_brawl_events_dropped_total, counter (события, не поместившиеся в очередь шины)
type Metrics struct {
	tickDuration prometheus.Histogram
	ticks        prometheus.Counter
	entities     *prometheus.GaugeVec
	indexCells   prometheus.Gauge
	indexEntries prometheus.Gauge
	indexOps     *prometheus.CounterVec
	damage       prometheus.Counter
	navOrders    *prometheus.CounterVec
	consoleLines prometheus.Counter
	eventsDrop   prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// nil означает prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const ns = "tile_brawl"
	m := &Metrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного игрового тика.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.016, 0.033, 0.1},
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "ticks_total",
			Help:      "Количество выполненных тиков.",
		}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "entities",
			Help:      "Живые сущности по видам.",
		}, []string{"kind"}),
		indexCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "index_cells",
			Help:      "Непустые ячейки пространственного индекса.",
		}),
		indexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "index_entries",
			Help:      "Пары ячейка-сущность в пространственном индексе.",
		}),
		indexOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "index_ops_total",
			Help:      "Применённые операции пространственного индекса.",
		}, []string{"op"}),
		damage: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "damage_events_total",
			Help:      "События урона.",
		}),
		navOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "nav_orders_total",
			Help:      "Приказы на движение по результату.",
		}, []string{"result"}),
		consoleLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "console_lines_total",
			Help:      "Строки, выведенные в консоли NPC.",
		}),
		eventsDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_dropped_total",
			Help:      "События, отброшенные из-за переполненной очереди шины.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.tickDuration, m.ticks, m.entities, m.indexCells, m.indexEntries,
		m.indexOps, m.damage, m.navOrders, m.consoleLines, m.eventsDrop,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observeIndex наблюдатель индекса, считающий операции
func (m *Metrics) observeIndex(op world.IndexOp) {
	m.indexOps.WithLabelValues(op.String()).Inc()
}

func (m *Metrics) observeNav(accepted, total int) {
	if accepted > 0 {
		m.navOrders.WithLabelValues("accepted").Add(float64(accepted))
	}
	if rejected := total - accepted; rejected > 0 {
		m.navOrders.WithLabelValues("rejected").Add(float64(rejected))
	}
}
