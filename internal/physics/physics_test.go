package physics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
)

var unit = vec.Vec2Float{X: 8, Y: 8}

func TestCoveredCells(t *testing.T) {
	m := grid.DefaultMapper()

	assert.Equal(t, grid.BoundingBox{MinX: 0, MinY: 0, MaxX: 0, MaxY: 0},
		CoveredCells(m, vec.Vec2Float{X: 8, Y: 8}, unit), "тело ровно в ячейке")
	assert.Equal(t, grid.BoundingBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 0},
		CoveredCells(m, vec.Vec2Float{X: 9, Y: 8}, unit), "малейший сдвиг задевает соседнюю ячейку")
}

func TestCanMoveTo(t *testing.T) {
	m := grid.DefaultMapper()
	wall := vec.Vec2{X: 1, Y: 0}
	solid := func(c vec.Vec2) bool { return c == wall }

	assert.True(t, CanMoveTo(m, vec.Vec2Float{X: 8, Y: 8}, unit, solid))
	assert.False(t, CanMoveTo(m, vec.Vec2Float{X: 10, Y: 8}, unit, solid))
	assert.True(t, CanMoveTo(m, vec.Vec2Float{X: 10, Y: 8}, unit, nil), "без проверки всё проходимо")
}

func TestStep_MovesAndMarks(t *testing.T) {
	m := grid.DefaultMapper()
	b := &Body{Position: vec.Vec2Float{X: 8, Y: 8}, HalfExtent: unit, Velocity: vec.Vec2Float{X: 60, Y: 0}}

	Step(b, time.Second/60, m, nil)

	assert.InDelta(t, 9.0, b.Position.X, 1e-9)
	assert.True(t, b.Moved)
}

func TestStep_BlockedAxisSlides(t *testing.T) {
	m := grid.DefaultMapper()
	solid := func(c vec.Vec2) bool { return c.X >= 1 }
	b := &Body{Position: vec.Vec2Float{X: 8, Y: 8}, HalfExtent: unit, Velocity: vec.Vec2Float{X: 60, Y: 60}}

	Step(b, time.Second/60, m, solid)

	assert.Equal(t, 8.0, b.Position.X, "ось X упирается в стену")
	assert.InDelta(t, 9.0, b.Position.Y, 1e-9, "ось Y продолжает движение")
}

func TestStep_NoVelocityNoMove(t *testing.T) {
	b := &Body{Position: vec.Vec2Float{X: 8, Y: 8}, HalfExtent: unit}
	Step(b, time.Second, grid.DefaultMapper(), nil)
	assert.False(t, b.Moved)

	b.Teleport(vec.Vec2Float{X: 8, Y: 8})
	assert.False(t, b.Moved, "телепорт в ту же точку не помечает тело")
	b.Teleport(vec.Vec2Float{X: 24, Y: 8})
	assert.True(t, b.Moved)
}
