package explorer

import "github.com/talgya/rescue-explorer/internal/world"

// FrontierNode pairs a visited position with the neighbors that were still
// unvisited when it was pushed. Neighbors are consumed front to back.
type FrontierNode struct {
	Pos       world.Position
	Neighbors []world.Position
}

// Next removes and returns the first remaining neighbor.
func (n *FrontierNode) Next() (world.Position, bool) {
	if len(n.Neighbors) == 0 {
		return world.Position{}, false
	}
	p := n.Neighbors[0]
	n.Neighbors = n.Neighbors[1:]
	return p, true
}

// Frontier is the depth-first stack. From bottom to top it holds the path
// taken from the origin to the current position.
type Frontier struct {
	nodes []*FrontierNode
}

// Push adds a node on top.
func (f *Frontier) Push(n *FrontierNode) {
	f.nodes = append(f.nodes, n)
}

// Pop removes and returns the top node, or nil when empty.
func (f *Frontier) Pop() *FrontierNode {
	if len(f.nodes) == 0 {
		return nil
	}
	last := len(f.nodes) - 1
	n := f.nodes[last]
	f.nodes[last] = nil
	f.nodes = f.nodes[:last]
	return n
}

// Peek returns the top node without removing it, or nil when empty.
func (f *Frontier) Peek() *FrontierNode {
	if len(f.nodes) == 0 {
		return nil
	}
	return f.nodes[len(f.nodes)-1]
}

// Second returns the node under the top, or nil with fewer than two nodes.
func (f *Frontier) Second() *FrontierNode {
	if len(f.nodes) < 2 {
		return nil
	}
	return f.nodes[len(f.nodes)-2]
}

// Len returns the stack depth.
func (f *Frontier) Len() int {
	return len(f.nodes)
}

// Empty reports whether the stack holds no nodes.
func (f *Frontier) Empty() bool {
	return len(f.nodes) == 0
}

// Clear drops every node.
func (f *Frontier) Clear() {
	clear(f.nodes)
	f.nodes = f.nodes[:0]
}

// Positions returns the node positions from the origin to the top.
func (f *Frontier) Positions() []world.Position {
	out := make([]world.Position, len(f.nodes))
	for i, n := range f.nodes {
		out[i] = n.Pos
	}
	return out
}

// RetraceStack records the displacement of every successful forward move.
type RetraceStack struct {
	moves [][2]int
}

// Push records a displacement.
func (r *RetraceStack) Push(dx, dy int) {
	r.moves = append(r.moves, [2]int{dx, dy})
}

// Pop removes the last displacement. ok is false when empty.
func (r *RetraceStack) Pop() (dx, dy int, ok bool) {
	if len(r.moves) == 0 {
		return 0, 0, false
	}
	last := r.moves[len(r.moves)-1]
	r.moves = r.moves[:len(r.moves)-1]
	return last[0], last[1], true
}

// Len returns the number of recorded displacements.
func (r *RetraceStack) Len() int {
	return len(r.moves)
}
