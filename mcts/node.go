package mcts

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/notnil/chess"

	"github.com/pawnstorm/game"
)

// Prior is the evaluator's initial estimate for one legal move, P(s, a) in
// the literature.
type Prior struct {
	Move *chess.Move
	P    float32
}

// Node is one board state reached by a sequence of moves from the tree root.
// Children are exclusively owned by their parent; the parent link exists for
// backup propagation and is cleared when a child becomes the new root.
type Node struct {
	parent   *Node
	children map[game.MoveKey]*Node
	order    []*Node // children in expansion order; breaks selection ties

	move  *chess.Move // move that produced this node, nil at the root
	state *game.State

	visits int
	q      float32 // running mean action value Q(s, a)
	u      float32 // exploration bonus, recomputed on every selection pass
	p      float32 // prior from the evaluator at expansion time
}

func newNode(parent *Node, p float32, st *game.State, move *chess.Move) *Node {
	return &Node{
		parent:   parent,
		children: make(map[game.MoveKey]*Node),
		p:        p,
		state:    st,
		move:     move,
	}
}

func (n *Node) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "{Move: %v, Q(s,a) %v, P(s,a) %v, Visits %v, Children %d}",
		n.move, n.q, n.p, n.visits, len(n.order))
}

// expand attaches one child per nonzero-prior legal move, all at once. Each
// child owns its own board copy, branched from this node's state. Moves the
// evaluator scored at exactly zero are pruned here and never attached.
func (n *Node) expand(priors []Prior) {
	for _, pr := range priors {
		if pr.P <= 0 {
			continue
		}
		key := game.KeyOf(pr.Move)
		if _, ok := n.children[key]; ok {
			continue
		}
		child := newNode(n, pr.P, n.state.Apply(pr.Move), pr.Move)
		n.children[key] = child
		n.order = append(n.order, child)
	}
}

// selectChild picks the child maximizing Q(s,a) + U(s,a), where
//
//	U(s, a) = cPuct * P(s, a) * sqrt(parent visits) / (1 + child visits)
//
// Ties go to the earliest child in expansion order, which follows the move
// generator's fixed enumeration, so repeated searches stay reproducible.
func (n *Node) selectChild(cPuct float32) *Node {
	var best *Node
	bestValue := math32.Inf(-1)
	numerator := math32.Sqrt(float32(n.visits))
	for _, child := range n.order {
		child.u = cPuct * child.p * numerator / (1 + float32(child.visits))
		if value := child.q + child.u; value > bestValue {
			bestValue = value
			best = child
		}
	}
	return best
}

// backup propagates a leaf value through every ancestor up to the root,
// negating at each ply since values alternate perspective. Each visited
// node's running mean is updated incrementally.
func (n *Node) backup(value float32) {
	for node, v := n, value; node != nil; node, v = node.parent, -v {
		node.visits++
		node.q += (v - node.q) / float32(node.visits)
	}
}

// isLeaf reports whether the node has no children, either because it was
// never expanded or because it is terminal.
func (n *Node) isLeaf() bool { return len(n.order) == 0 }

// Visits returns N(s, a).
func (n *Node) Visits() int { return n.visits }

// Q returns the accumulated mean action value.
func (n *Node) Q() float32 { return n.q }

// P returns the prior assigned at expansion time.
func (n *Node) P() float32 { return n.p }

// Move returns the move that produced this node, nil at the root.
func (n *Node) Move() *chess.Move { return n.move }

// State returns the board state this node represents.
func (n *Node) State() *game.State { return n.state }
