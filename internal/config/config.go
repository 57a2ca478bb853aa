package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid возвращается Validate при некорректной конфигурации
var ErrInvalid = errors.New("invalid config")

// Config корневая структура конфигурации приложения.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Tick      TickConfig      `yaml:"tick"`
	Combat    CombatConfig    `yaml:"combat"`
	Movement  MovementConfig  `yaml:"movement"`
	AI        AIConfig        `yaml:"ai"`
	Level     LevelConfig     `yaml:"level"`
	Console   ConsoleConfig   `yaml:"console"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GridConfig размеры сетки в мировых единицах
type GridConfig struct {
	CellSize       float64 `yaml:"cell_size"`
	Offset         float64 `yaml:"offset"`
	UnitHalfExtent float64 `yaml:"unit_half_extent"`
}

type TickConfig struct {
	Rate int `yaml:"rate"` // тиков в секунду
}

// Interval возвращает номинальную длительность одного тика (с округлением вниз)
func (t TickConfig) Interval() time.Duration {
	return time.Second / time.Duration(t.rate())
}

// Delta возвращает шаг тика n (с единицы) как разность накопленного времени,
// так что rate тиков подряд дают ровно одну секунду
func (t TickConfig) Delta(n uint64) time.Duration {
	if n == 0 {
		return 0
	}
	rate := time.Duration(t.rate())
	return time.Duration(n)*time.Second/rate - time.Duration(n-1)*time.Second/rate
}

func (t TickConfig) rate() int {
	if t.Rate <= 0 {
		return 60
	}
	return t.Rate
}

type CombatConfig struct {
	Damage        int           `yaml:"damage"`
	PushbackX     float64       `yaml:"pushback_x"`
	PushbackY     float64       `yaml:"pushback_y"`
	Hitstun       time.Duration `yaml:"hitstun"`
	SwingDuration time.Duration `yaml:"swing_duration"`
	HitPolicy     string        `yaml:"hit_policy"` // continuous | single_hit
}

type MovementConfig struct {
	Speed float64 `yaml:"speed"`
}

type AIConfig struct {
	Range          int     `yaml:"range"` // в ячейках
	ApproachSpeed  float64 `yaml:"approach_speed"`
	ArriveDistance float64 `yaml:"arrive_distance"`
}

type LevelConfig struct {
	LayoutFile  string `yaml:"layout_file"`
	Seed        int64  `yaml:"seed"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	NPCCount    int    `yaml:"npc_count"`
	StoragePath string `yaml:"storage_path"`
	PlayerName  string `yaml:"player_name"`
}

type ConsoleConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Model         string        `yaml:"model"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxCommandLen int           `yaml:"max_command_len"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Prefix    string `yaml:"subject_prefix"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type StorageConfig struct {
	Positions     string `yaml:"positions"` // memory | redis | maria | mongo
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	MariaDSN      string `yaml:"maria_dsn"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			CellSize:       16,
			Offset:         8,
			UnitHalfExtent: 8,
		},
		Tick: TickConfig{Rate: 60},
		Combat: CombatConfig{
			Damage:        1,
			Hitstun:       time.Second,
			SwingDuration: time.Second,
			HitPolicy:     "continuous",
		},
		Movement: MovementConfig{Speed: 100},
		AI: AIConfig{
			Range:          3,
			ApproachSpeed:  100,
			ArriveDistance: 16,
		},
		Level: LevelConfig{
			Seed:        42,
			Width:       32,
			Height:      24,
			NPCCount:    3,
			StoragePath: "data",
			PlayerName:  "player",
		},
		Console: ConsoleConfig{
			Endpoint:      "https://api.openai.com/v1/chat/completions",
			Model:         "gpt-4o-mini",
			APIKeyEnv:     "OPENAI_API_KEY",
			Timeout:       30 * time.Second,
			MaxCommandLen: 144,
		},
		EventBus: EventBusConfig{
			Stream:    "EVENTS",
			Prefix:    "brawl",
			Retention: 24,
			Buffer:    1024,
		},
		Storage: StorageConfig{
			Positions: "memory",
			RedisAddr: "localhost:6379",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "tile-brawl",
		},
	}
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.Grid.CellSize <= 0 {
		return fmt.Errorf("%w: grid.cell_size должен быть > 0, получено %v", ErrInvalid, c.Grid.CellSize)
	}
	if c.Grid.UnitHalfExtent <= 0 {
		return fmt.Errorf("%w: grid.unit_half_extent должен быть > 0", ErrInvalid)
	}
	if c.Tick.Rate <= 0 {
		return fmt.Errorf("%w: tick.rate должен быть > 0", ErrInvalid)
	}
	if c.Combat.SwingDuration < 0 {
		return fmt.Errorf("%w: combat.swing_duration не может быть отрицательным", ErrInvalid)
	}
	switch c.Combat.HitPolicy {
	case "continuous", "single_hit":
	default:
		return fmt.Errorf("%w: неизвестная combat.hit_policy %q", ErrInvalid, c.Combat.HitPolicy)
	}
	if c.AI.Range < 0 {
		return fmt.Errorf("%w: ai.range не может быть отрицательным", ErrInvalid)
	}
	switch c.Storage.Positions {
	case "memory", "redis", "maria", "mongo":
	default:
		return fmt.Errorf("%w: неизвестный storage.positions %q", ErrInvalid, c.Storage.Positions)
	}
	return nil
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV GAME_CONFIG; если и он пуст, возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан, используем дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	return Parse(data)
}

// Parse разбирает YAML поверх значений по умолчанию и валидирует результат
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
