package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/rescue-explorer/internal/world"
)

func TestPresetsArePermutations(t *testing.T) {
	for i := 0; i < NumPreferences(); i++ {
		seen := make(map[world.Direction]bool)
		for _, d := range PreferenceFor(i) {
			require.Less(t, d, world.Direction(world.NumDirections))
			seen[d] = true
		}
		assert.Len(t, seen, world.NumDirections, "preset %d", i)
	}
}

func TestPreferenceFor(t *testing.T) {
	assert.Equal(t, world.North, PreferenceFor(0)[0])
	assert.Equal(t, world.South, PreferenceFor(1)[0])
	assert.Equal(t, world.East, PreferenceFor(2)[0])

	assert.Equal(t, PreferenceFor(0), PreferenceFor(NumPreferences()))
	assert.Equal(t, PreferenceFor(1), PreferenceFor(NumPreferences()+1))
	assert.Equal(t, PreferenceFor(0), PreferenceFor(-4))
}

func TestPreferenceRotate(t *testing.T) {
	p := PreferenceFor(0)

	r := p.Rotate(1)
	assert.Equal(t, p[1], r[0])
	assert.Equal(t, p[0], r[world.NumDirections-1])

	assert.Equal(t, p, p.Rotate(world.NumDirections))
	assert.Equal(t, p.Rotate(world.NumDirections-1), p.Rotate(-1))
}
