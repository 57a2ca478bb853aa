package ai

import (
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/world"
)

// UpdateLock пересчитывает захват цели. Без цели ищется ближайшая сущность
// в пределах Range ячеек от бокса; захваченная цель сбрасывается, если она
// исчезла или отошла дальше Range*CellSize.
func UpdateLock(reg *entity.Registry, index *world.EntityGridMap, mapper grid.Mapper, e *entity.Entity) entity.TargetLock {
	brain := e.Brain
	limit := float64(brain.Range) * mapper.CellSize

	if target, ok := brain.Lock.Target(); ok {
		t, alive := reg.Get(target)
		if !alive || t.Body == nil {
			brain.Lock = entity.Unset()
			return brain.Lock
		}
		d := e.Body.Position.DistanceTo(t.Body.Position)
		if d > limit {
			brain.Lock = entity.Unset()
		} else {
			brain.Lock = entity.Locked(target, d)
		}
		return brain.Lock
	}

	if id, d, ok := nearest(reg, index, mapper, e); ok && d <= limit {
		brain.Lock = entity.Locked(id, d)
	}
	return brain.Lock
}

// nearest сканирует индекс в боксе сущности, расширенном на Range ячеек
func nearest(reg *entity.Registry, index *world.EntityGridMap, mapper grid.Mapper, e *entity.Entity) (entity.ID, float64, bool) {
	var box grid.BoundingBox
	if e.Coordinate != nil && e.Coordinate.Tracked {
		box = e.Coordinate.Box
	} else {
		box = mapper.ComputeBBox(e.Body.Position, e.Body.HalfExtent)
	}
	r := e.Brain.Range
	area := grid.BoundingBox{MinX: box.MinX - r, MinY: box.MinY - r, MaxX: box.MaxX + r, MaxY: box.MaxY + r}

	best := entity.Nil
	bestDist := -1.0
	seen := make(map[entity.ID]struct{})
	for _, cell := range area.Cells() {
		ids, ok := index.Get(cell)
		if !ok {
			continue
		}
		for _, id := range ids {
			if id == e.ID {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			other, alive := reg.Get(id)
			if !alive || other.Body == nil || !targetable(other.Kind) {
				continue
			}
			if d := e.Body.Position.DistanceTo(other.Body.Position); bestDist < 0 || d < bestDist {
				best, bestDist = id, d
			}
		}
	}
	return best, bestDist, bestDist >= 0
}

func targetable(k entity.Kind) bool {
	return k == entity.KindPlayer || k == entity.KindNPC
}
