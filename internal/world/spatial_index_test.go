package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
)

func eid(i uint32) entity.ID {
	return entity.ID{Index: i, Generation: 1}
}

func TestEntityGridMap_InsertIdempotent(t *testing.T) {
	m := NewEntityGridMap()
	cell := vec.Vec2{X: 3, Y: 4}
	e := eid(1)

	m.Insert(cell, e)
	m.Insert(cell, e)

	ids, ok := m.Get(cell)
	require.True(t, ok)
	assert.Len(t, ids, 1, "повторная вставка не должна дублировать сущность")
	assert.Equal(t, 1, m.Stats().Entries)
}

func TestEntityGridMap_DeleteEmptiesCell(t *testing.T) {
	m := NewEntityGridMap()
	cell := vec.Vec2{X: 0, Y: 0}
	a, b := eid(1), eid(2)

	m.Insert(cell, a)
	m.Insert(cell, b)
	m.Delete(cell, a)

	ids, ok := m.Get(cell)
	require.True(t, ok)
	assert.Equal(t, []entity.ID{b}, ids)

	m.Delete(cell, b)
	_, ok = m.Get(cell)
	assert.False(t, ok, "ячейка без сущностей должна исчезнуть")
	assert.Equal(t, 0, m.CellCount())
}

func TestEntityGridMap_DeleteAbsentIsNoop(t *testing.T) {
	m := NewEntityGridMap()
	m.Delete(vec.Vec2{X: 9, Y: 9}, eid(1))

	m.Insert(vec.Vec2{X: 0, Y: 0}, eid(1))
	m.Delete(vec.Vec2{X: 0, Y: 0}, eid(2))

	assert.True(t, m.Contains(vec.Vec2{X: 0, Y: 0}, eid(1)))
	assert.Equal(t, uint64(0), m.Stats().Deletes)
}

func TestEntityGridMap_GetReturnsCopy(t *testing.T) {
	m := NewEntityGridMap()
	m.Insert(vec.Vec2{}, eid(1))

	ids, _ := m.Get(vec.Vec2{})
	ids[0] = eid(99)

	assert.True(t, m.Contains(vec.Vec2{}, eid(1)), "изменение результата Get не должно портить индекс")
}

type recordedOp struct {
	op   IndexOp
	cell vec.Vec2
}

func TestEntityGridMap_MoveAcrossCellBoundary(t *testing.T) {
	m := NewEntityGridMap()
	e := eid(1)
	old := grid.BoundingBox{MinX: 0, MinY: 0, MaxX: 0, MaxY: 0}
	next := grid.BoundingBox{MinX: 1, MinY: 0, MaxX: 1, MaxY: 0}
	m.Track(e, old)

	var ops []recordedOp
	m.SetObserver(func(op IndexOp, cell vec.Vec2, id entity.ID) {
		assert.Equal(t, e, id)
		ops = append(ops, recordedOp{op, cell})
	})

	m.Update(e, old, next)

	assert.Equal(t, []recordedOp{
		{OpDelete, vec.Vec2{X: 0, Y: 0}},
		{OpInsert, vec.Vec2{X: 1, Y: 0}},
	}, ops)

	_, ok := m.Get(vec.Vec2{X: 0, Y: 0})
	assert.False(t, ok)
	ids, ok := m.Get(vec.Vec2{X: 1, Y: 0})
	require.True(t, ok)
	assert.Equal(t, []entity.ID{e}, ids)
}

func TestEntityGridMap_UpdateTouchesOnlyBands(t *testing.T) {
	m := NewEntityGridMap()
	e := eid(1)
	old := grid.BoundingBox{MinX: 0, MinY: 0, MaxX: 9, MaxY: 9}
	m.Track(e, old)

	var touched int
	m.SetObserver(func(IndexOp, vec.Vec2, entity.ID) { touched++ })

	// Сдвиг на одну ячейку вправо: уходит левый столбец, приходит правый
	m.Update(e, old, grid.BoundingBox{MinX: 1, MinY: 0, MaxX: 10, MaxY: 9})

	assert.Equal(t, 20, touched, "обновление должно быть пропорционально периметру, а не площади")
}

func TestEntityGridMap_UpdateSameBoxNoop(t *testing.T) {
	m := NewEntityGridMap()
	box := grid.BoundingBox{MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}
	m.Track(eid(1), box)
	before := m.Stats()

	m.Update(eid(1), box, box)

	assert.Equal(t, before, m.Stats())
}

func cellSet(cells []vec.Vec2) map[vec.Vec2]struct{} {
	out := make(map[vec.Vec2]struct{}, len(cells))
	for _, c := range cells {
		out[c] = struct{}{}
	}
	return out
}

func randomBox(rng *rand.Rand) grid.BoundingBox {
	minX := rng.Intn(12) - 4
	minY := rng.Intn(12) - 4
	return grid.BoundingBox{
		MinX: minX,
		MinY: minY,
		MaxX: minX + rng.Intn(4),
		MaxY: minY + rng.Intn(4),
	}
}

func TestEntityGridMap_InvariantUnderRandomUpdates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewEntityGridMap()

	const entities = 6
	boxes := make([]grid.BoundingBox, entities)
	for i := range boxes {
		boxes[i] = randomBox(rng)
		m.Track(eid(uint32(i+1)), boxes[i])
	}

	for step := 0; step < 2000; step++ {
		i := rng.Intn(entities)
		id := eid(uint32(i + 1))

		var next grid.BoundingBox
		if rng.Intn(3) == 0 {
			// Телепорт: боксы могут не пересекаться
			next = randomBox(rng)
		} else {
			next = boxes[i]
			dx, dy := rng.Intn(3)-1, rng.Intn(3)-1
			next.MinX += dx
			next.MaxX += dx + rng.Intn(2) - rng.Intn(2)
			next.MinY += dy
			next.MaxY += dy + rng.Intn(2) - rng.Intn(2)
			if next.MaxX < next.MinX {
				next.MaxX = next.MinX
			}
			if next.MaxY < next.MinY {
				next.MaxY = next.MinY
			}
		}

		m.Update(id, boxes[i], next)
		boxes[i] = next

		for j := range boxes {
			got := cellSet(m.CellsOf(eid(uint32(j + 1))))
			want := cellSet(boxes[j].Cells())
			require.Equal(t, want, got, "шаг %d, сущность %d, бокс %v", step, j+1, boxes[j])
		}
	}

	total := 0
	for _, b := range boxes {
		total += len(b.Cells())
	}
	assert.Equal(t, total, m.Stats().Entries)
}

func TestEntityGridMap_TrackUntrack(t *testing.T) {
	m := NewEntityGridMap()
	box := grid.BoundingBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

	m.Track(eid(1), box)
	assert.Equal(t, 4, m.CellCount())

	m.Untrack(eid(1), box)
	assert.Equal(t, 0, m.CellCount())
	assert.Empty(t, m.CellsOf(eid(1)))
}
