package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoise_DeterministicAndBounded(t *testing.T) {
	a := NewNoise(7)
	b := NewNoise(7)

	for x := 0.0; x < 5; x += 0.37 {
		for y := 0.0; y < 5; y += 0.41 {
			va := a.At(x, y)
			assert.Equal(t, va, b.At(x, y), "одинаковый сид должен давать одинаковый шум")
			assert.GreaterOrEqual(t, va, 0.0)
			assert.LessOrEqual(t, va, 1.0)
		}
	}
	assert.Equal(t, int64(7), a.Seed())
}
