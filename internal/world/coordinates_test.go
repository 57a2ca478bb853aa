package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/physics"
	"github.com/annel0/tile-brawl/internal/vec"
)

var unit = vec.Vec2Float{X: 8, Y: 8}

func spawnAt(reg *entity.Registry, kind entity.Kind, cell vec.Vec2) *entity.Entity {
	e := reg.Spawn(kind, kind.String())
	e.Body = physics.NewBody(grid.DefaultMapper().CellCenter(cell), unit)
	e.Coordinate = &entity.Coordinate{}
	e.Facing = &entity.Facing{Direction: grid.Down}
	return e
}

func TestUpdateCoordinates_TracksAndMoves(t *testing.T) {
	reg := entity.NewRegistry()
	index := NewEntityGridMap()
	mapper := grid.DefaultMapper()

	e := spawnAt(reg, entity.KindPlayer, vec.Vec2{X: 0, Y: 0})

	assert.Equal(t, 1, UpdateCoordinates(reg, index, mapper))
	assert.True(t, e.Coordinate.Tracked)
	assert.False(t, e.Body.Moved)
	assert.Equal(t, []vec.Vec2{{X: 0, Y: 0}}, index.CellsOf(e.ID))

	// Без движения индекс не трогается
	assert.Equal(t, 0, UpdateCoordinates(reg, index, mapper))

	// Сдвиг внутри ячейки не меняет бокс
	e.Body.Teleport(vec.Vec2Float{X: 8.5, Y: 8})
	e.Body.Teleport(vec.Vec2Float{X: 8, Y: 8})
	assert.Equal(t, 0, UpdateCoordinates(reg, index, mapper))
	assert.False(t, e.Body.Moved, "флаг движения сбрасывается даже без смены бокса")

	e.Body.Teleport(mapper.CellCenter(vec.Vec2{X: 1, Y: 0}))
	assert.Equal(t, 1, UpdateCoordinates(reg, index, mapper))
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 0}}, index.CellsOf(e.ID))
	assert.Equal(t, grid.BoundingBox{MinX: 1, MinY: 0, MaxX: 1, MaxY: 0}, e.Coordinate.Box)
}

func TestAttach_DespawnUntracks(t *testing.T) {
	reg := entity.NewRegistry()
	index := NewEntityGridMap()
	Attach(reg, index)

	e := spawnAt(reg, entity.KindNPC, vec.Vec2{X: 2, Y: 2})
	UpdateCoordinates(reg, index, grid.DefaultMapper())
	require.Equal(t, 1, index.CellCount())

	reg.Despawn(e.ID)
	assert.Equal(t, 0, index.CellCount(), "удалённая сущность не должна оставаться в индексе")
}

func TestProbeEntities_ExcludesSelfAndDedupes(t *testing.T) {
	index := NewEntityGridMap()
	self, a, b := eid(1), eid(2), eid(3)
	box := grid.BoundingBox{MinX: 2, MinY: 2, MaxX: 3, MaxY: 2}

	// self перекрывает полосу перед собой
	index.Track(self, grid.BoundingBox{MinX: 2, MinY: 1, MaxX: 3, MaxY: 2})
	// a занимает обе ячейки полосы
	index.Track(a, grid.BoundingBox{MinX: 2, MinY: 1, MaxX: 3, MaxY: 1})
	index.Insert(vec.Vec2{X: 3, Y: 1}, b)
	// вне полосы
	index.Insert(vec.Vec2{X: 2, Y: 3}, eid(4))

	got := ProbeEntities(index, grid.Down, box, self)
	assert.Equal(t, []entity.ID{a, b}, got)
	assert.NotContains(t, got, self)
}

func TestProbeEntities_Empty(t *testing.T) {
	index := NewEntityGridMap()
	assert.Empty(t, ProbeEntities(index, grid.Left, grid.BoxAt(vec.Vec2{}), eid(1)))
}
