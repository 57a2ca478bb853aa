package grid

import "github.com/annel0/tile-brawl/internal/vec"

// Range целочисленный диапазон, границы включительно
type Range struct {
	From, To int
}

// Len количество значений в диапазоне
func (r Range) Len() int {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// ProbeCells возвращает полосу глубиной в одну ячейку, примыкающую к боксу
// со стороны взгляда: досягаемость удара или взаимодействия.
func ProbeCells(facing Facing, box BoundingBox) (xRange, yRange Range) {
	switch facing {
	case Up:
		return Range{box.MinX, box.MaxX}, Range{box.MaxY + 1, box.MaxY + 1}
	case Left:
		return Range{box.MinX - 1, box.MinX - 1}, Range{box.MinY, box.MaxY}
	case Right:
		return Range{box.MaxX + 1, box.MaxX + 1}, Range{box.MinY, box.MaxY}
	default:
		return Range{box.MinX, box.MaxX}, Range{box.MinY - 1, box.MinY - 1}
	}
}

// ProbeStrip перечисляет ячейки полосы (декартово произведение диапазонов)
func ProbeStrip(facing Facing, box BoundingBox) []vec.Vec2 {
	xr, yr := ProbeCells(facing, box)
	cells := make([]vec.Vec2, 0, xr.Len()*yr.Len())
	for y := yr.From; y <= yr.To; y++ {
		for x := xr.From; x <= xr.To; x++ {
			cells = append(cells, vec.Vec2{X: x, Y: y})
		}
	}
	return cells
}
