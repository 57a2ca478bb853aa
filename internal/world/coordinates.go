package world

import (
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
)

// Attach связывает индекс с реестром: удаляемые сущности снимаются с индекса
func Attach(reg *entity.Registry, index *EntityGridMap) {
	reg.OnDespawn(func(e *entity.Entity) {
		if e.Coordinate != nil && e.Coordinate.Tracked {
			index.Untrack(e.ID, e.Coordinate.Box)
			e.Coordinate.Tracked = false
		}
	})
}

// UpdateCoordinates единственный писатель индекса. Для сдвинутых тел
// пересчитывает бокс и применяет разницу; новые сущности записывает целиком.
// Возвращает количество сущностей, чей бокс изменился.
func UpdateCoordinates(reg *entity.Registry, index *EntityGridMap, mapper grid.Mapper) int {
	changed := 0
	reg.Each(func(e *entity.Entity) {
		if e.Body == nil || e.Coordinate == nil {
			return
		}
		coord := e.Coordinate

		if !coord.Tracked {
			coord.Box = mapper.ComputeBBox(e.Body.Position, e.Body.HalfExtent)
			index.Track(e.ID, coord.Box)
			coord.Tracked = true
			e.Body.Moved = false
			changed++
			return
		}
		if !e.Body.Moved {
			return
		}
		e.Body.Moved = false

		next := mapper.ComputeBBox(e.Body.Position, e.Body.HalfExtent)
		if next == coord.Box {
			return
		}
		index.Update(e.ID, coord.Box, next)
		coord.Box = next
		changed++
	})
	return changed
}

// ProbeEntities возвращает сущности в полосе перед боксом без повторов,
// исключая self, в порядке первого обнаружения.
func ProbeEntities(index *EntityGridMap, facing grid.Facing, box grid.BoundingBox, self entity.ID) []entity.ID {
	var found []entity.ID
	seen := make(map[entity.ID]struct{})
	for _, cell := range grid.ProbeStrip(facing, box) {
		ids, ok := index.cells[cell]
		if !ok {
			continue
		}
		for _, id := range ids {
			if id == self {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			found = append(found, id)
		}
	}
	return found
}
