// Package grid переводит мировые координаты в ячейки сетки и строит
// полосы проб для атак и взаимодействия.
package grid

import (
	"math"

	"github.com/annel0/tile-brawl/internal/vec"
)

// Значения по умолчанию для сетки 16x16 с центрированием боксов в ячейках
const (
	DefaultCellSize       = 16.0
	DefaultOffset         = 8.0
	DefaultUnitHalfExtent = 8.0
)

// Mapper преобразует позицию и полуразмеры в бокс ячеек
type Mapper struct {
	CellSize float64
	Offset   float64
}

// NewMapper создаёт маппер; неположительный размер ячейки заменяется значением по умолчанию
func NewMapper(cellSize, offset float64) Mapper {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return Mapper{CellSize: cellSize, Offset: offset}
}

// DefaultMapper маппер с параметрами по умолчанию
func DefaultMapper() Mapper {
	return Mapper{CellSize: DefaultCellSize, Offset: DefaultOffset}
}

// ComputeBBox вычисляет бокс ячеек, которые перекрывает тело.
//
//	min = ceil((p - offset - h) / cell)
//	max = floor((p - offset + h) / cell)
//
// Если полуразмер меньше половины ячейки, формулы могут дать min > max;
// тогда ось схлопывается в ячейку, содержащую центр. Ограничений по
// диапазону нет: ячейки вне уровня просто не совпадут ни с одним тайлом.
func (m Mapper) ComputeBBox(pos, halfExtent vec.Vec2Float) BoundingBox {
	minX, maxX := m.axis(pos.X, halfExtent.X)
	minY, maxY := m.axis(pos.Y, halfExtent.Y)
	return BoundingBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

func (m Mapper) axis(p, h float64) (int, int) {
	lo := int(math.Ceil((p - m.Offset - h) / m.CellSize))
	hi := int(math.Floor((p - m.Offset + h) / m.CellSize))
	if lo > hi {
		c := m.cellAxis(p)
		return c, c
	}
	return lo, hi
}

func (m Mapper) cellAxis(p float64) int {
	return int(math.Floor((p-m.Offset)/m.CellSize + 0.5))
}

// CellOf возвращает ячейку, содержащую точку
func (m Mapper) CellOf(pos vec.Vec2Float) vec.Vec2 {
	return vec.Vec2{X: m.cellAxis(pos.X), Y: m.cellAxis(pos.Y)}
}

// CellCenter мировые координаты центра ячейки
func (m Mapper) CellCenter(cell vec.Vec2) vec.Vec2Float {
	return vec.Vec2Float{
		X: float64(cell.X)*m.CellSize + m.Offset,
		Y: float64(cell.Y)*m.CellSize + m.Offset,
	}
}
