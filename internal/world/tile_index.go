package world

import (
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/vec"
)

// TileKind классификация тайла
type TileKind uint8

const (
	Wall TileKind = iota // отсутствующая ячейка считается стеной
	Floor
)

func (k TileKind) String() string {
	if k == Floor {
		return "floor"
	}
	return "wall"
}

// Tile запись тайлового индекса
type Tile struct {
	Occupant entity.ID `json:"occupant"`
	Kind     TileKind  `json:"kind"`
}

// TileGridMap статический индекс тайлов: ячейка -> (сущность тайла, тип).
// Отслеживает максимальные x/y, по которым строится сетка проходимости.
type TileGridMap struct {
	tiles   map[vec.Vec2]Tile
	maxX    int
	maxY    int
	any     bool
	version uint64
}

// NewTileGridMap создаёт пустой индекс тайлов
func NewTileGridMap() *TileGridMap {
	return &TileGridMap{
		tiles: make(map[vec.Vec2]Tile),
	}
}

// Insert записывает тайл в ячейку, заменяя предыдущий
func (m *TileGridMap) Insert(cell vec.Vec2, occupant entity.ID, kind TileKind) {
	m.tiles[cell] = Tile{Occupant: occupant, Kind: kind}
	if !m.any || cell.X > m.maxX {
		m.maxX = cell.X
	}
	if !m.any || cell.Y > m.maxY {
		m.maxY = cell.Y
	}
	m.any = true
	m.version++
}

// Delete удаляет тайл. Максимумы не уменьшаются: сетка проходимости
// сохраняет размер, а пустая ячейка просто становится непроходимой.
func (m *TileGridMap) Delete(cell vec.Vec2) {
	if _, ok := m.tiles[cell]; !ok {
		return
	}
	delete(m.tiles, cell)
	m.version++
}

// Get возвращает тайл ячейки
func (m *TileGridMap) Get(cell vec.Vec2) (Tile, bool) {
	t, ok := m.tiles[cell]
	return t, ok
}

// Contains проверяет наличие тайла
func (m *TileGridMap) Contains(cell vec.Vec2) bool {
	_, ok := m.tiles[cell]
	return ok
}

// KindAt возвращает тип тайла; для пустой ячейки Wall
func (m *TileGridMap) KindAt(cell vec.Vec2) TileKind {
	if t, ok := m.tiles[cell]; ok {
		return t.Kind
	}
	return Wall
}

// Solid сообщает, что ячейка непроходима
func (m *TileGridMap) Solid(cell vec.Vec2) bool {
	return m.KindAt(cell) == Wall
}

// MaxX наибольший x среди вставленных тайлов
func (m *TileGridMap) MaxX() int { return m.maxX }

// MaxY наибольший y среди вставленных тайлов
func (m *TileGridMap) MaxY() int { return m.maxY }

// Width ширина сетки проходимости: max_x+1, либо 0 для пустого индекса
func (m *TileGridMap) Width() int {
	if !m.any {
		return 0
	}
	return m.maxX + 1
}

// Height высота сетки проходимости: max_y+1, либо 0 для пустого индекса
func (m *TileGridMap) Height() int {
	if !m.any {
		return 0
	}
	return m.maxY + 1
}

// Len количество тайлов
func (m *TileGridMap) Len() int { return len(m.tiles) }

// Version растёт при каждом изменении; навигация перестраивается по нему
func (m *TileGridMap) Version() uint64 { return m.version }

// Each обходит тайлы построчно
func (m *TileGridMap) Each(fn func(cell vec.Vec2, t Tile)) {
	cells := make([]vec.Vec2, 0, len(m.tiles))
	for c := range m.tiles {
		cells = append(cells, c)
	}
	sortCells(cells)
	for _, c := range cells {
		fn(c, m.tiles[c])
	}
}
