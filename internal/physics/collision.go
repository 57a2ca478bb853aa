package physics

import (
	"math"

	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
)

// SolidFunc сообщает, является ли ячейка непроходимой
type SolidFunc func(cell vec.Vec2) bool

// CoveredCells возвращает бокс ячеек, с которыми пересекается прямоугольник тела.
// В отличие от игрового бокса mapper.ComputeBBox, здесь учитывается любое
// ненулевое перекрытие, поэтому тело не может «втиснуться» в стену.
func CoveredCells(m grid.Mapper, pos, half vec.Vec2Float) grid.BoundingBox {
	minX, maxX := coveredAxis(m, pos.X, half.X)
	minY, maxY := coveredAxis(m, pos.Y, half.Y)
	return grid.BoundingBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

func coveredAxis(m grid.Mapper, p, h float64) (int, int) {
	lo := int(math.Floor((p-h-m.Offset)/m.CellSize + 0.5))
	hi := int(math.Ceil((p+h-m.Offset)/m.CellSize+0.5)) - 1
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// CanMoveTo проверяет, может ли тело с полуразмерами half стоять в позиции pos
func CanMoveTo(m grid.Mapper, pos, half vec.Vec2Float, solid SolidFunc) bool {
	if solid == nil {
		return true
	}
	box := CoveredCells(m, pos, half)
	for y := box.MinY; y <= box.MaxY; y++ {
		for x := box.MinX; x <= box.MaxX; x++ {
			if solid(vec.Vec2{X: x, Y: y}) {
				// Если хотя бы одна ячейка непроходима, движение невозможно
				return false
			}
		}
	}
	return true
}
