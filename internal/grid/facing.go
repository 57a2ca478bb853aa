package grid

import (
	"fmt"
	"math"
	"strings"

	"github.com/annel0/tile-brawl/internal/vec"
)

// Facing направление взгляда сущности
type Facing uint8

const (
	Down Facing = iota // по умолчанию
	Up
	Left
	Right
)

func (f Facing) String() string {
	switch f {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("facing(%d)", uint8(f))
	}
}

// Delta единичный шаг в ячейках в сторону взгляда (y растёт вверх)
func (f Facing) Delta() vec.Vec2 {
	switch f {
	case Up:
		return vec.Vec2{X: 0, Y: 1}
	case Left:
		return vec.Vec2{X: -1, Y: 0}
	case Right:
		return vec.Vec2{X: 1, Y: 0}
	default:
		return vec.Vec2{X: 0, Y: -1}
	}
}

// ParseFacing разбирает направление из строки
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w":
		return Up, nil
	case "down", "s":
		return Down, nil
	case "left", "a":
		return Left, nil
	case "right", "d":
		return Right, nil
	}
	return Down, fmt.Errorf("неизвестное направление: %q", s)
}

// FacingFromVelocity выбирает направление по доминирующей оси скорости.
// Для нулевой скорости возвращает current.
func FacingFromVelocity(v vec.Vec2Float, current Facing) Facing {
	if v.IsZero() {
		return current
	}
	if math.Abs(v.X) > math.Abs(v.Y) {
		if v.X > 0 {
			return Right
		}
		return Left
	}
	if v.Y > 0 {
		return Up
	}
	return Down
}
