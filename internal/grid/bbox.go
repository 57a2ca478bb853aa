package grid

import (
	"fmt"

	"github.com/annel0/tile-brawl/internal/vec"
)

// BoundingBox прямоугольник ячеек сетки, границы включительно.
// Всегда MinX <= MaxX и MinY <= MaxY.
type BoundingBox struct {
	MinX, MinY int
	MaxX, MaxY int
}

// BoxAt возвращает бокс из одной ячейки
func BoxAt(cell vec.Vec2) BoundingBox {
	return BoundingBox{MinX: cell.X, MinY: cell.Y, MaxX: cell.X, MaxY: cell.Y}
}

// Width количество столбцов
func (b BoundingBox) Width() int { return b.MaxX - b.MinX + 1 }

// Height количество строк
func (b BoundingBox) Height() int { return b.MaxY - b.MinY + 1 }

// Valid проверяет инвариант min <= max
func (b BoundingBox) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// Contains проверяет, покрывает ли бокс ячейку
func (b BoundingBox) Contains(cell vec.Vec2) bool {
	return cell.X >= b.MinX && cell.X <= b.MaxX && cell.Y >= b.MinY && cell.Y <= b.MaxY
}

// Cells перечисляет все покрытые ячейки построчно (y, затем x)
func (b BoundingBox) Cells() []vec.Vec2 {
	if !b.Valid() {
		return nil
	}
	cells := make([]vec.Vec2, 0, b.Width()*b.Height())
	for y := b.MinY; y <= b.MaxY; y++ {
		for x := b.MinX; x <= b.MaxX; x++ {
			cells = append(cells, vec.Vec2{X: x, Y: y})
		}
	}
	return cells
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%d..%d]x[%d..%d]", b.MinX, b.MaxX, b.MinY, b.MaxY)
}
