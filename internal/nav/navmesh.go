package nav

import (
	"errors"
	"fmt"

	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
)

var (
	// ErrDegenerateGrid сетка не пригодна для построения навигации
	ErrDegenerateGrid = errors.New("degenerate navigation grid")
	// ErrNoPath путь между точками не существует
	ErrNoPath = errors.New("no path")
	// ErrNoNavmesh навигация ещё не построена
	ErrNoNavmesh = errors.New("no navmesh")
)

// Navmesh построенная навигация для агентов радиуса Radius
type Navmesh struct {
	grid   Grid
	mapper grid.Mapper
	Radius float64
}

// Generate строит навигацию. Пустая сетка, сетка без проходимых ячеек и
// радиус агента от половины ячейки и больше считаются вырожденными.
func Generate(g Grid, mapper grid.Mapper, agentRadius float64) (*Navmesh, error) {
	if g.Width <= 0 || g.Height <= 0 {
		return nil, fmt.Errorf("%w: размер %dx%d", ErrDegenerateGrid, g.Width, g.Height)
	}
	if g.NavigableCount() == 0 {
		return nil, fmt.Errorf("%w: нет проходимых ячеек", ErrDegenerateGrid)
	}
	if agentRadius <= 0 || agentRadius >= mapper.CellSize/2 {
		return nil, fmt.Errorf("%w: радиус агента %.2f при ячейке %.2f", ErrDegenerateGrid, agentRadius, mapper.CellSize)
	}
	return &Navmesh{grid: g, mapper: mapper, Radius: agentRadius}, nil
}

// Grid возвращает сетку проходимости
func (m *Navmesh) Grid() Grid { return m.grid }

// Navigable проверяет, проходима ли ячейка
func (m *Navmesh) Navigable(c vec.Vec2) bool { return m.grid.Navigable(c) }

// FindPath возвращает точки маршрута от start к goal, не включая стартовую
// ячейку. Последняя точка совпадает с goal.
func (m *Navmesh) FindPath(start, goal vec.Vec2Float) ([]vec.Vec2Float, error) {
	from := m.mapper.CellOf(start)
	to := m.mapper.CellOf(goal)

	cells := astar(m.grid, from, to)
	if cells == nil {
		return nil, fmt.Errorf("%w: %v -> %v", ErrNoPath, from, to)
	}

	cells = simplify(cells)
	path := make([]vec.Vec2Float, 0, len(cells))
	for _, c := range cells[1:] {
		path = append(path, m.mapper.CellCenter(c))
	}
	if len(path) == 0 || path[len(path)-1] != goal {
		// Внутри целевой ячейки доходим до самой точки
		path = append(path, goal)
	}
	return path, nil
}
