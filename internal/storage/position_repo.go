// Package storage сохраняет уровни (BadgerDB) и последние позиции игроков
// (память, Redis или MariaDB).
package storage

import (
	"context"
	"errors"

	"github.com/annel0/tile-brawl/internal/vec"
)

// ErrPositionNotFound позиция игрока не сохранена
var ErrPositionNotFound = errors.New("position not found")

// PositionRepo определяет интерфейс для сохранения и загрузки позиций игроков.
// Позиция хранится как ячейка сетки и привязана к имени игрока, так что она
// переживает перезапуск сервера.
type PositionRepo interface {
	// Save сохраняет ячейку игрока.
	Save(ctx context.Context, player string, cell vec.Vec2) error

	// Load загружает ячейку игрока.
	// Возвращает:
	//   vec.Vec2 - ячейка игрока
	//   bool - true если позиция найдена, false если первый вход
	//   error - ошибка при загрузке
	Load(ctx context.Context, player string) (vec.Vec2, bool, error)

	// Delete удаляет сохранённую позицию; ErrPositionNotFound, если её не было.
	Delete(ctx context.Context, player string) error

	// BatchSave сохраняет позиции нескольких игроков одновременно.
	BatchSave(ctx context.Context, positions map[string]vec.Vec2) error

	Close() error
}

// validPlayer проверяет имя игрока, общая проверка всех реализаций
func validPlayer(player string) error {
	if player == "" {
		return errors.New("пустое имя игрока")
	}
	if len(player) > 64 {
		return errors.New("имя игрока длиннее 64 байт")
	}
	return nil
}
