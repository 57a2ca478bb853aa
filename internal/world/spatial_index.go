package world

import (
	"slices"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
)

// IndexOp тип операции над индексом, передаётся наблюдателю
type IndexOp uint8

const (
	OpInsert IndexOp = iota
	OpDelete
)

func (op IndexOp) String() string {
	if op == OpDelete {
		return "delete"
	}
	return "insert"
}

// IndexObserver получает каждую фактически применённую операцию
type IndexObserver func(op IndexOp, cell vec.Vec2, id entity.ID)

// IndexStats счётчики индекса
type IndexStats struct {
	Cells   int    `json:"cells"`
	Entries int    `json:"entries"`
	Inserts uint64 `json:"inserts"`
	Deletes uint64 `json:"deletes"`
}

// EntityGridMap пространственный индекс: ячейка -> сущности, которые её перекрывают.
//
// Для каждой отслеживаемой сущности множество ячеек, где она числится,
// в точности равно её текущему боксу. Пустые ячейки удаляются, поэтому
// память пропорциональна активной площади, а не размеру мира.
//
// Индекс не потокобезопасен: единственный писатель это система обновления
// координат игрового цикла, читатели выполняются после неё в том же тике.
type EntityGridMap struct {
	cells    map[vec.Vec2][]entity.ID
	entries  int
	inserts  uint64
	deletes  uint64
	observer IndexObserver
}

// NewEntityGridMap создаёт пустой индекс
func NewEntityGridMap() *EntityGridMap {
	return &EntityGridMap{
		cells: make(map[vec.Vec2][]entity.ID),
	}
}

// SetObserver подключает наблюдателя операций (nil отключает)
func (m *EntityGridMap) SetObserver(o IndexObserver) {
	m.observer = o
}

// Insert добавляет сущность в ячейку. Повторная вставка ничего не меняет.
func (m *EntityGridMap) Insert(cell vec.Vec2, id entity.ID) {
	ids := m.cells[cell]
	if slices.Contains(ids, id) {
		return
	}
	m.cells[cell] = append(ids, id)
	m.entries++
	m.inserts++
	if m.observer != nil {
		m.observer(OpInsert, cell, id)
	}
}

// Delete убирает сущность из ячейки; последняя сущность удаляет и саму ячейку.
// Удаление отсутствующей записи ничего не делает.
func (m *EntityGridMap) Delete(cell vec.Vec2, id entity.ID) {
	ids, ok := m.cells[cell]
	if !ok {
		return
	}
	i := slices.Index(ids, id)
	if i < 0 {
		return
	}
	ids = slices.Delete(ids, i, i+1)
	if len(ids) == 0 {
		delete(m.cells, cell)
	} else {
		m.cells[cell] = ids
	}
	m.entries--
	m.deletes++
	if m.observer != nil {
		m.observer(OpDelete, cell, id)
	}
}

// Get возвращает копию списка сущностей ячейки; false если ячейка пуста
func (m *EntityGridMap) Get(cell vec.Vec2) ([]entity.ID, bool) {
	ids, ok := m.cells[cell]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

// Contains проверяет, числится ли сущность в ячейке
func (m *EntityGridMap) Contains(cell vec.Vec2, id entity.ID) bool {
	return slices.Contains(m.cells[cell], id)
}

// Track записывает сущность во все ячейки бокса (появление в мире)
func (m *EntityGridMap) Track(id entity.ID, box grid.BoundingBox) {
	for y := box.MinY; y <= box.MaxY; y++ {
		for x := box.MinX; x <= box.MaxX; x++ {
			m.Insert(vec.Vec2{X: x, Y: y}, id)
		}
	}
}

// Untrack убирает сущность из всех ячеек бокса (удаление из мира)
func (m *EntityGridMap) Untrack(id entity.ID, box grid.BoundingBox) {
	for y := box.MinY; y <= box.MaxY; y++ {
		for x := box.MinX; x <= box.MaxX; x++ {
			m.Delete(vec.Vec2{X: x, Y: y}, id)
		}
	}
}

// Update переводит сущность из бокса old в бокс next, затрагивая только
// полосы ячеек, которые вышли из покрытия или вошли в него по каждой из
// четырёх граней. Сначала применяются удаления, затем вставки.
func (m *EntityGridMap) Update(id entity.ID, old, next grid.BoundingBox) {
	if old == next {
		return
	}

	// Полосы по X охватывают все строки соответствующего бокса
	if next.MinX > old.MinX {
		m.deleteBand(id, old.MinX, min(next.MinX, old.MaxX+1)-1, old.MinY, old.MaxY)
	}
	if next.MaxX < old.MaxX {
		m.deleteBand(id, max(next.MaxX+1, old.MinX), old.MaxX, old.MinY, old.MaxY)
	}
	// Полосы по Y охватывают все столбцы
	if next.MinY > old.MinY {
		m.deleteBand(id, old.MinX, old.MaxX, old.MinY, min(next.MinY, old.MaxY+1)-1)
	}
	if next.MaxY < old.MaxY {
		m.deleteBand(id, old.MinX, old.MaxX, max(next.MaxY+1, old.MinY), old.MaxY)
	}

	if next.MinX < old.MinX {
		m.insertBand(id, next.MinX, min(next.MaxX+1, old.MinX)-1, next.MinY, next.MaxY)
	}
	if next.MaxX > old.MaxX {
		m.insertBand(id, max(old.MaxX+1, next.MinX), next.MaxX, next.MinY, next.MaxY)
	}
	if next.MinY < old.MinY {
		m.insertBand(id, next.MinX, next.MaxX, next.MinY, min(next.MaxY+1, old.MinY)-1)
	}
	if next.MaxY > old.MaxY {
		m.insertBand(id, next.MinX, next.MaxX, max(old.MaxY+1, next.MinY), next.MaxY)
	}
}

func (m *EntityGridMap) insertBand(id entity.ID, x0, x1, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Insert(vec.Vec2{X: x, Y: y}, id)
		}
	}
}

func (m *EntityGridMap) deleteBand(id entity.ID, x0, x1, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Delete(vec.Vec2{X: x, Y: y}, id)
		}
	}
}

// CellCount количество непустых ячеек
func (m *EntityGridMap) CellCount() int {
	return len(m.cells)
}

// Stats возвращает счётчики индекса
func (m *EntityGridMap) Stats() IndexStats {
	return IndexStats{
		Cells:   len(m.cells),
		Entries: m.entries,
		Inserts: m.inserts,
		Deletes: m.deletes,
	}
}

// CellsOf полным обходом находит ячейки, где числится сущность.
// Предназначен для отладки и тестов.
func (m *EntityGridMap) CellsOf(id entity.ID) []vec.Vec2 {
	var out []vec.Vec2
	for cell, ids := range m.cells {
		if slices.Contains(ids, id) {
			out = append(out, cell)
		}
	}
	sortCells(out)
	return out
}

// Snapshot копирует содержимое индекса для читателей вне игрового цикла
func (m *EntityGridMap) Snapshot() map[vec.Vec2][]entity.ID {
	out := make(map[vec.Vec2][]entity.ID, len(m.cells))
	for cell, ids := range m.cells {
		out[cell] = slices.Clone(ids)
	}
	return out
}

func sortCells(cells []vec.Vec2) {
	slices.SortFunc(cells, func(a, b vec.Vec2) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
}
