package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/tile-brawl/internal/vec"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется по умолчанию и для тестов.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[string]vec.Vec2 // игрок -> ячейка
}

// NewMemoryPositionRepo создает новый репозиторий позиций в памяти.
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[string]vec.Vec2),
	}
}

// Save сохраняет позицию игрока в памяти.
func (r *MemoryPositionRepo) Save(ctx context.Context, player string, cell vec.Vec2) error {
	if err := validPlayer(player); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[player] = cell
	return nil
}

// Load загружает позицию игрока из памяти.
func (r *MemoryPositionRepo) Load(ctx context.Context, player string) (vec.Vec2, bool, error) {
	if err := validPlayer(player); err != nil {
		return vec.Vec2{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return vec.Vec2{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cell, exists := r.data[player]
	return cell, exists, nil
}

// Delete удаляет сохраненную позицию игрока из памяти.
func (r *MemoryPositionRepo) Delete(ctx context.Context, player string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[player]; !exists {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, player)
	}
	delete(r.data, player)
	return nil
}

// BatchSave сохраняет позиции нескольких игроков; при ошибке валидации не сохраняет ничего.
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Vec2) error {
	if len(positions) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for player := range positions {
		if err := validPlayer(player); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for player, cell := range positions {
		r.data[player] = cell
	}
	return nil
}

// Count возвращает количество сохраненных позиций (для отладки).
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не освобождает
func (r *MemoryPositionRepo) Close() error { return nil }
