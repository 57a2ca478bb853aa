package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/physics"
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

type arena struct {
	reg   *entity.Registry
	index *world.EntityGridMap
	sys   *System
}

func newArena() *arena {
	a := &arena{
		reg:   entity.NewRegistry(),
		index: world.NewEntityGridMap(),
		sys:   NewSystem(grid.DefaultMapper(), 16),
	}
	world.Attach(a.reg, a.index)
	a.sys.Attach(a.reg)
	return a
}

func (a *arena) spawn(kind entity.Kind, name string, cell vec.Vec2) *entity.Entity {
	e := a.reg.Spawn(kind, name)
	e.Body = physics.NewBody(grid.DefaultMapper().CellCenter(cell), vec.Vec2Float{X: 8, Y: 8})
	e.Coordinate = &entity.Coordinate{}
	e.Facing = &entity.Facing{}
	return e
}

func (a *arena) npc(cell vec.Vec2) *entity.Entity {
	e := a.spawn(entity.KindNPC, "npc", cell)
	e.Brain = &entity.Brain{Range: 3, Speed: 100}
	return e
}

func (a *arena) sync() {
	world.UpdateCoordinates(a.reg, a.index, grid.DefaultMapper())
}

func TestUpdateLock_AcquiresNearest(t *testing.T) {
	a := newArena()
	npc := a.npc(vec.Vec2{X: 5, Y: 5})
	far := a.spawn(entity.KindPlayer, "far", vec.Vec2{X: 8, Y: 5})
	near := a.spawn(entity.KindPlayer, "near", vec.Vec2{X: 5, Y: 7})
	a.spawn(entity.KindTile, "tile", vec.Vec2{X: 5, Y: 6})
	a.sync()

	lock := UpdateLock(a.reg, a.index, grid.DefaultMapper(), npc)
	target, ok := lock.Target()
	require.True(t, ok)
	assert.Equal(t, near.ID, target, "тайлы не являются целью")
	assert.InDelta(t, 32.0, lock.Distance(), 1e-9)

	// Захват держится, даже если появилась более близкая цель
	far.Body.Teleport(grid.DefaultMapper().CellCenter(vec.Vec2{X: 6, Y: 5}))
	a.sync()
	lock = UpdateLock(a.reg, a.index, grid.DefaultMapper(), npc)
	target, _ = lock.Target()
	assert.Equal(t, near.ID, target)
}

func TestUpdateLock_ExcludesSelfAndOutOfRange(t *testing.T) {
	a := newArena()
	npc := a.npc(vec.Vec2{X: 5, Y: 5})
	a.spawn(entity.KindPlayer, "far", vec.Vec2{X: 9, Y: 5})
	a.sync()

	lock := UpdateLock(a.reg, a.index, grid.DefaultMapper(), npc)
	assert.False(t, lock.IsLocked())
}

func TestUpdateLock_ResetsWhenTargetLeavesOrDies(t *testing.T) {
	a := newArena()
	m := grid.DefaultMapper()
	npc := a.npc(vec.Vec2{X: 5, Y: 5})
	target := a.spawn(entity.KindPlayer, "player", vec.Vec2{X: 6, Y: 5})
	a.sync()

	require.True(t, UpdateLock(a.reg, a.index, m, npc).IsLocked())

	target.Body.Teleport(m.CellCenter(vec.Vec2{X: 8, Y: 5}))
	a.sync()
	lock := UpdateLock(a.reg, a.index, m, npc)
	require.True(t, lock.IsLocked(), "ровно на границе радиуса захват сохраняется")
	assert.InDelta(t, 48.0, lock.Distance(), 1e-9)

	target.Body.Teleport(m.CellCenter(vec.Vec2{X: 9, Y: 5}))
	a.sync()
	assert.False(t, UpdateLock(a.reg, a.index, m, npc).IsLocked())

	target.Body.Teleport(m.CellCenter(vec.Vec2{X: 6, Y: 5}))
	a.sync()
	require.True(t, UpdateLock(a.reg, a.index, m, npc).IsLocked())
	a.reg.Despawn(target.ID)
	assert.False(t, UpdateLock(a.reg, a.index, m, npc).IsLocked())
}

func TestSystem_ApproachIssuesDynamicOrder(t *testing.T) {
	a := newArena()
	npc := a.npc(vec.Vec2{X: 5, Y: 5})
	player := a.spawn(entity.KindPlayer, "player", vec.Vec2{X: 7, Y: 5})
	a.sync()

	// Захват и переход в сближение происходят в одном тике
	orders := a.sys.Update(a.reg, a.index)
	require.Len(t, orders, 1)
	assert.Equal(t, npc.ID, orders[0].Mover)
	assert.True(t, orders[0].Target.IsDynamic())
	assert.Equal(t, player.ID, orders[0].Target.Entity)
	assert.Equal(t, 100.0, orders[0].Speed)
	assert.Equal(t, 16.0, orders[0].ArriveDist)
	assert.Equal(t, "approach", npc.Brain.State)

	// Маршрут выдан системой навигации: повторных приказов нет
	npc.Nav = &entity.Navigation{Follow: player.ID}
	assert.Empty(t, a.sys.Update(a.reg, a.index))
}

func TestSystem_ReordersWhenTargetMovesAfterArrival(t *testing.T) {
	a := newArena()
	m := grid.DefaultMapper()
	a.npc(vec.Vec2{X: 5, Y: 5})
	player := a.spawn(entity.KindPlayer, "player", vec.Vec2{X: 6, Y: 5})
	a.sync()

	require.Len(t, a.sys.Update(a.reg, a.index), 1)

	// Цель рядом: навигация закончена, приказ не повторяется
	assert.Empty(t, a.sys.Update(a.reg, a.index))

	player.Body.Teleport(m.CellCenter(vec.Vec2{X: 7, Y: 5}))
	a.sync()
	assert.Len(t, a.sys.Update(a.reg, a.index), 1)
}

func TestSystem_LostTargetReturnsToIdle(t *testing.T) {
	a := newArena()
	npc := a.npc(vec.Vec2{X: 5, Y: 5})
	player := a.spawn(entity.KindPlayer, "player", vec.Vec2{X: 6, Y: 5})
	a.sync()

	a.sys.Update(a.reg, a.index)
	require.Equal(t, "approach", npc.Brain.State)
	npc.Nav = &entity.Navigation{Follow: player.ID}
	npc.Body.Velocity = vec.Vec2Float{X: 100}
	npc.Animation = entity.AnimWalk

	a.reg.Despawn(player.ID)
	a.sys.Update(a.reg, a.index)

	assert.Equal(t, "idle", npc.Brain.State)
	assert.Nil(t, npc.Nav)
	assert.True(t, npc.Body.Velocity.IsZero())
	assert.Equal(t, entity.AnimIdle, npc.Animation)
}

func TestSystem_ForgetsDespawnedBrains(t *testing.T) {
	a := newArena()
	npc := a.npc(vec.Vec2{X: 5, Y: 5})
	a.sync()

	a.sys.Update(a.reg, a.index)
	assert.Equal(t, 1, a.sys.Machine().Len())

	a.reg.Despawn(npc.ID)
	assert.Equal(t, 0, a.sys.Machine().Len())
}
