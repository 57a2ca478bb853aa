package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/tile-brawl/internal/vec"
)

func TestProbeCells(t *testing.T) {
	box := BoundingBox{MinX: 2, MinY: 2, MaxX: 4, MaxY: 4}

	tests := []struct {
		facing Facing
		wantX  Range
		wantY  Range
	}{
		{Down, Range{2, 4}, Range{1, 1}},
		{Up, Range{2, 4}, Range{5, 5}},
		{Left, Range{1, 1}, Range{2, 4}},
		{Right, Range{5, 5}, Range{2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.facing.String(), func(t *testing.T) {
			x, y := ProbeCells(tt.facing, box)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestProbeCells_Deterministic(t *testing.T) {
	box := BoundingBox{MinX: 2, MinY: 2, MaxX: 4, MaxY: 4}
	for i := 0; i < 10; i++ {
		x, y := ProbeCells(Down, box)
		assert.Equal(t, Range{2, 4}, x)
		assert.Equal(t, Range{1, 1}, y)
	}
}

func TestProbeStrip(t *testing.T) {
	cells := ProbeStrip(Right, BoundingBox{MinX: 0, MinY: 0, MaxX: 0, MaxY: 1})
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 0}, {X: 1, Y: 1}}, cells)

	for _, f := range []Facing{Up, Down, Left, Right} {
		box := BoundingBox{MinX: 3, MinY: 3, MaxX: 3, MaxY: 3}
		strip := ProbeStrip(f, box)
		assert.Len(t, strip, 1)
		assert.False(t, box.Contains(strip[0]), "полоса не должна пересекаться с боксом")
		assert.Equal(t, vec.Vec2{X: 3, Y: 3}.Add(f.Delta()), strip[0])
	}
}

func TestFacingFromVelocity(t *testing.T) {
	assert.Equal(t, Right, FacingFromVelocity(vec.Vec2Float{X: 5, Y: 1}, Down))
	assert.Equal(t, Left, FacingFromVelocity(vec.Vec2Float{X: -5, Y: 1}, Down))
	assert.Equal(t, Up, FacingFromVelocity(vec.Vec2Float{X: 0, Y: 3}, Down))
	assert.Equal(t, Down, FacingFromVelocity(vec.Vec2Float{X: 0, Y: -3}, Up))
	assert.Equal(t, Left, FacingFromVelocity(vec.Zero, Left), "без движения направление сохраняется")
}

func TestParseFacing(t *testing.T) {
	f, err := ParseFacing("W")
	assert.NoError(t, err)
	assert.Equal(t, Up, f)

	_, err = ParseFacing("north")
	assert.Error(t, err)
}
