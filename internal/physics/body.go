// Package physics упрощённая физика: интегрирование скорости и столкновения
// с непроходимыми тайлами. Игровая сетка сущностей от неё не зависит.
package physics

import (
	"time"

	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
)

// Body физическое тело сущности
type Body struct {
	Position   vec.Vec2Float
	HalfExtent vec.Vec2Float
	Velocity   vec.Vec2Float

	// Moved выставляется, когда позиция изменилась; сбрасывает система
	// обновления координат после пересчёта бокса.
	Moved bool
}

// NewBody создаёт тело и помечает его как сдвинутое, чтобы первый тик построил бокс
func NewBody(pos, half vec.Vec2Float) *Body {
	return &Body{Position: pos, HalfExtent: half, Moved: true}
}

// Teleport мгновенно переносит тело
func (b *Body) Teleport(pos vec.Vec2Float) {
	if b.Position != pos {
		b.Position = pos
		b.Moved = true
	}
}

// Step интегрирует скорость за dt. Оси обрабатываются раздельно, так что
// тело скользит вдоль стены вместо полной остановки.
func Step(b *Body, dt time.Duration, m grid.Mapper, solid SolidFunc) {
	if b == nil || b.Velocity.IsZero() || dt <= 0 {
		return
	}
	delta := b.Velocity.Mul(dt.Seconds())
	start := b.Position

	if delta.X != 0 {
		next := vec.Vec2Float{X: b.Position.X + delta.X, Y: b.Position.Y}
		if CanMoveTo(m, next, b.HalfExtent, solid) {
			b.Position = next
		}
	}
	if delta.Y != 0 {
		next := vec.Vec2Float{X: b.Position.X, Y: b.Position.Y + delta.Y}
		if CanMoveTo(m, next, b.HalfExtent, solid) {
			b.Position = next
		}
	}

	if b.Position != start {
		b.Moved = true
	}
}
