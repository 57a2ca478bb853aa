package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/vec"
)

// RedisPositionRepository хранит позиции игроков в Redis
type RedisPositionRepository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// storedPosition запись позиции в Redis
type storedPosition struct {
	Player    string    `json:"player"`
	Cell      vec.Vec2  `json:"cell"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 без ограничения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "brawl:pos:",
	}
}

// NewRedisPositionRepository подключается к Redis и проверяет соединение
func NewRedisPositionRepository(ctx context.Context, config *RedisConfig) (*RedisPositionRepository, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetComponentLogger("storage").Info("🔴 Connected to Redis at %s", config.Addr)
	return &RedisPositionRepository{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (r *RedisPositionRepository) key(player string) string {
	return r.keyPrefix + player
}

// Save сохраняет позицию игрока
func (r *RedisPositionRepository) Save(ctx context.Context, player string, cell vec.Vec2) error {
	if err := validPlayer(player); err != nil {
		return err
	}
	data, err := json.Marshal(storedPosition{Player: player, Cell: cell, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(player), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Load получает позицию игрока
func (r *RedisPositionRepository) Load(ctx context.Context, player string) (vec.Vec2, bool, error) {
	if err := validPlayer(player); err != nil {
		return vec.Vec2{}, false, err
	}

	data, err := r.client.Get(ctx, r.key(player)).Bytes()
	if errors.Is(err, redis.Nil) {
		return vec.Vec2{}, false, nil // Позиция не найдена
	} else if err != nil {
		return vec.Vec2{}, false, fmt.Errorf("failed to get position: %w", err)
	}

	var pos storedPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return vec.Vec2{}, false, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return pos.Cell, true, nil
}

// Delete удаляет позицию игрока
func (r *RedisPositionRepository) Delete(ctx context.Context, player string) error {
	n, err := r.client.Del(ctx, r.key(player)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, player)
	}
	return nil
}

// BatchSave записывает позиции одним пайплайном
func (r *RedisPositionRepository) BatchSave(ctx context.Context, positions map[string]vec.Vec2) error {
	if len(positions) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	now := time.Now().UTC()
	for player, cell := range positions {
		if err := validPlayer(player); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		data, err := json.Marshal(storedPosition{Player: player, Cell: cell, UpdatedAt: now})
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(player), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisPositionRepository) Close() error {
	return r.client.Close()
}
