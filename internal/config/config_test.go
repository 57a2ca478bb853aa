package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 16.0, cfg.Grid.CellSize, "Размер ячейки по умолчанию 16")
	assert.Equal(t, 8.0, cfg.Grid.Offset, "Смещение по умолчанию 8")
	assert.Equal(t, time.Second, cfg.Combat.SwingDuration)
	assert.Equal(t, "continuous", cfg.Combat.HitPolicy)
	assert.Equal(t, 144, cfg.Console.MaxCommandLen)
	assert.Equal(t, time.Second/60, cfg.Tick.Interval())
}

func TestTickConfig_DeltaSumsToSecond(t *testing.T) {
	for _, rate := range []int{60, 30, 144, 7} {
		tc := TickConfig{Rate: rate}
		var sum time.Duration
		for n := uint64(1); n <= uint64(rate); n++ {
			d := tc.Delta(n)
			assert.InDelta(t, float64(time.Second)/float64(rate), float64(d), 1, "rate %d тик %d", rate, n)
			sum += d
		}
		assert.Equal(t, time.Second, sum, "rate %d", rate)
	}
	assert.Equal(t, time.Duration(0), TickConfig{Rate: 60}.Delta(0))
	assert.Equal(t, TickConfig{Rate: 60}.Delta(1), TickConfig{}.Delta(1), "нулевая частота означает 60")
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
grid:
  cell_size: 32
combat:
  swing_duration: 500ms
  hit_policy: single_hit
ai:
  range: 5
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 32.0, cfg.Grid.CellSize)
	assert.Equal(t, 8.0, cfg.Grid.Offset, "Незаданные поля должны остаться по умолчанию")
	assert.Equal(t, 500*time.Millisecond, cfg.Combat.SwingDuration)
	assert.Equal(t, "single_hit", cfg.Combat.HitPolicy)
	assert.Equal(t, 5, cfg.AI.Range)
}

func TestParse_MongoPositions(t *testing.T) {
	cfg, err := Parse([]byte("storage:\n  positions: mongo\n  mongo_uri: mongodb://db:27017\n  mongo_database: brawl\n"))
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.Storage.Positions)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.MongoURI)
	assert.Equal(t, "brawl", cfg.Storage.MongoDatabase)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"нулевая ячейка", "grid:\n  cell_size: 0\n"},
		{"отрицательный тик", "tick:\n  rate: -1\n"},
		{"неизвестная политика", "combat:\n  hit_policy: sometimes\n"},
		{"неизвестное хранилище", "storage:\n  positions: floppy\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_FromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte("movement:\n  speed: 42\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42.0, cfg.Movement.Speed)

	t.Setenv("GAME_CONFIG", path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 42.0, cfg.Movement.Speed)

	t.Setenv("GAME_CONFIG", "")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Movement.Speed, cfg.Movement.Speed)
}

func TestServerConfig_PortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("GAME_REST_PORT", "9000")
	assert.Equal(t, 9000, s.GetRESTPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort())

	t.Setenv("GAME_METRICS_PORT", "")
	assert.Equal(t, 2112, s.GetMetricsPort())
}
