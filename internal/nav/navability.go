// Package nav строит сетку проходимости из тайлового индекса и ищет пути
// для приказов на движение.
package nav

import (
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

// Grid сетка проходимости размером (max_x+1) x (max_y+1)
type Grid struct {
	Width  int
	Height int
	cells  []bool
}

// BuildNavability строит сетку по тайловому индексу.
// Пол проходим; стены и отсутствующие ячейки непроходимы.
func BuildNavability(tiles *world.TileGridMap) Grid {
	g := Grid{Width: tiles.Width(), Height: tiles.Height()}
	g.cells = make([]bool, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			g.cells[y*g.Width+x] = tiles.KindAt(vec.Vec2{X: x, Y: y}) == world.Floor
		}
	}
	return g
}

// Navigable проверяет проходимость ячейки; вне сетки всё непроходимо
func (g Grid) Navigable(c vec.Vec2) bool {
	if c.X < 0 || c.Y < 0 || c.X >= g.Width || c.Y >= g.Height {
		return false
	}
	return g.cells[c.Y*g.Width+c.X]
}

// NavigableCount количество проходимых ячеек
func (g Grid) NavigableCount() int {
	n := 0
	for _, ok := range g.cells {
		if ok {
			n++
		}
	}
	return n
}
