package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/annel0/tile-brawl/internal/config"
	"github.com/annel0/tile-brawl/internal/console"
	"github.com/annel0/tile-brawl/internal/eventbus"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/storage"
	"github.com/annel0/tile-brawl/internal/world"
)

// levelKey ключ сгенерированного уровня в кеше
func levelKey(lc config.LevelConfig) string {
	return fmt.Sprintf("perlin-%d-%dx%d-%d", lc.Seed, lc.Width, lc.Height, lc.NPCCount)
}

// loadLevel читает раскладку из файла, а без файла берёт уровень из кеша
// или генерирует его и кладёт в кеш. levels может быть nil.
func loadLevel(lc config.LevelConfig, levels *storage.LevelStorage) (*world.Level, error) {
	if lc.LayoutFile != "" {
		data, err := os.ReadFile(lc.LayoutFile)
		if err != nil {
			return nil, fmt.Errorf("чтение раскладки: %w", err)
		}
		lvl, err := world.ParseLayout(data)
		if err != nil {
			return nil, fmt.Errorf("раскладка %s: %w", lc.LayoutFile, err)
		}
		logging.Info("🗺️ Раскладка загружена из %s", lc.LayoutFile)
		return lvl, nil
	}

	key := levelKey(lc)
	if levels != nil {
		lvl, err := levels.LoadLevel(key)
		switch {
		case err == nil:
			logging.Info("💾 Уровень %s взят из кеша", key)
			return lvl, nil
		case errors.Is(err, storage.ErrLevelNotFound):
		default:
			// повреждённую запись перегенерируем
			logging.Warn("⚠️ Кеш уровня %s недоступен: %v", key, err)
		}
	}

	lvl, err := world.NewLevelGenerator(lc.Seed).Generate(lc.Width, lc.Height, lc.NPCCount)
	if err != nil {
		return nil, err
	}
	logging.Info("🌱 Уровень %s сгенерирован", key)
	if levels != nil {
		if err := levels.SaveLevel(key, lvl); err != nil {
			logging.Warn("⚠️ Не удалось сохранить уровень в кеш: %v", err)
		}
	}
	return lvl, nil
}

// openPositions выбирает хранилище позиций по конфигурации
func openPositions(ctx context.Context, sc config.StorageConfig) (storage.PositionRepo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch sc.Positions {
	case "", "memory":
		return storage.NewMemoryPositionRepo(), nil
	case "redis":
		return storage.NewRedisPositionRepository(ctx, &storage.RedisConfig{
			Addr:      sc.RedisAddr,
			Password:  sc.RedisPassword,
			DB:        sc.RedisDB,
			KeyPrefix: "brawl:pos:",
		})
	case "maria":
		return storage.NewMariaPositionRepo(ctx, sc.MariaDSN)
	case "mongo":
		return storage.NewMongoPositionRepository(ctx, &storage.MongoConfig{
			URI:      sc.MongoURI,
			Database: sc.MongoDatabase,
		})
	}
	return nil, fmt.Errorf("%w: неизвестное хранилище позиций %q", config.ErrInvalid, sc.Positions)
}

// openBus подключает JetStream, если задан адрес, иначе шину в памяти
func openBus(ec config.EventBusConfig) (eventbus.EventBus, error) {
	if ec.URL == "" {
		return eventbus.NewMemoryBus(ec.Buffer), nil
	}
	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
		URL:       ec.URL,
		Stream:    ec.Stream,
		Prefix:    ec.Prefix,
		Retention: time.Duration(ec.Retention) * time.Hour,
	})
	if err != nil {
		return nil, err
	}
	logging.Info("📨 События экспортируются в JetStream %s (stream %s)", ec.URL, ec.Stream)
	return bus, nil
}

// newAsker создаёт клиента модели, если в окружении есть ключ
func newAsker(cc config.ConsoleConfig) console.Asker {
	key := os.Getenv(cc.APIKeyEnv)
	if key == "" || cc.Endpoint == "" {
		logging.Info("🤖 %s не задан, команда ask отключена", cc.APIKeyEnv)
		return nil
	}
	return console.NewHTTPAsker(cc.Endpoint, cc.Model, key, cc.Timeout)
}
