package explorer

import "github.com/talgya/rescue-explorer/internal/world"

// Preference is a circular ordering of the eight directions. Neighbors are
// offered to the frontier in this order, so explorers holding different
// orderings fan out over different parts of the grid.
type Preference [world.NumDirections]world.Direction

// presetPreferences are the orderings handed out by explorer index.
var presetPreferences = [...]Preference{
	{world.North, world.NorthEast, world.NorthWest, world.East, world.West, world.SouthEast, world.SouthWest, world.South}, // north-east
	{world.South, world.SouthWest, world.SouthEast, world.West, world.East, world.NorthWest, world.NorthEast, world.North}, // south-west
	{world.East, world.SouthEast, world.NorthEast, world.South, world.North, world.SouthWest, world.NorthWest, world.West}, // east-north
}

// PreferenceFor returns the preset ordering for an explorer index.
// Indices wrap around the preset table; negative indices use the first entry.
func PreferenceFor(index int) Preference {
	if index < 0 {
		index = 0
	}
	return presetPreferences[index%len(presetPreferences)]
}

// NumPreferences returns the size of the preset table.
func NumPreferences() int {
	return len(presetPreferences)
}

// Rotate returns the ordering shifted left by n positions.
func (p Preference) Rotate(n int) Preference {
	var out Preference
	k := len(p)
	n = ((n % k) + k) % k
	for i := range out {
		out[i] = p[(i+n)%k]
	}
	return out
}
