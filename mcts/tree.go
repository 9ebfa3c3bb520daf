package mcts

import (
	"github.com/chewxy/math32"
	"github.com/notnil/chess"
	"github.com/pkg/errors"

	"github.com/pawnstorm/game"
)

// Evaluator scores a position: one probability per legal move plus a value
// estimate in [-1, 1] from the perspective of the side to move. Priors must
// be in the position's legal-move enumeration order. An evaluator failure is
// fatal to the simulation that triggered it; it is never substituted with a
// neutral value, since a wrong estimate would poison backup statistics
// undetectably.
type Evaluator interface {
	Evaluate(s *game.State) (priors []Prior, value float32, err error)
}

// Config configures the search tree.
type Config struct {
	// CPuct scales the influence of priors against accumulated evidence.
	CPuct float32 `json:"c_puct"`
	// Simulations is the budget spent per move decision.
	Simulations int `json:"simulations"`
}

func DefaultConfig() Config {
	return Config{
		CPuct:       1.4,
		Simulations: 800,
	}
}

func (c Config) IsValid() bool {
	return c.CPuct > 0 && c.Simulations > 0
}

// deterministicTemperature is the threshold at or below which
// MoveDistribution collapses to a one-hot at the most visited child.
const deterministicTemperature = 1e-3

// Tree is a neural-network-guided Monte Carlo search tree over chess
// positions. It is not safe for concurrent use; each self-play worker owns
// its own Tree.
type Tree struct {
	conf Config
	eval Evaluator
	root *Node
}

func New(conf Config, eval Evaluator) *Tree {
	if !conf.IsValid() {
		panic("mcts config is not valid, unable to proceed")
	}
	return &Tree{conf: conf, eval: eval}
}

// SetRoot discards any prior tree and roots a fresh one at the given state,
// expanding it with a single evaluator call. A position with no legal moves
// simply yields a childless root.
func (t *Tree) SetRoot(s *game.State) error {
	root := newNode(nil, 1, s, nil)
	priors, _, err := t.eval.Evaluate(s)
	if err != nil {
		return errors.WithMessage(err, "expand root")
	}
	root.expand(priors)
	t.root = root
	return nil
}

// RunSimulation performs one selection, expansion and backup pass. Terminal
// leaves are scored with the exact game outcome and never re-queried from
// the evaluator.
func (t *Tree) RunSimulation() error {
	if t.root == nil {
		return errors.New("no root: call SetRoot first")
	}
	node := t.root
	for !node.isLeaf() {
		node = node.selectChild(t.conf.CPuct)
	}
	if ended, outcome := node.state.Terminal(); ended {
		node.backup(-outcome)
		return nil
	}
	priors, value, err := t.eval.Evaluate(node.state)
	if err != nil {
		return errors.WithMessage(err, "evaluate leaf")
	}
	node.expand(priors)
	node.backup(-value)
	return nil
}

// RunSimulations spends the configured per-decision budget.
func (t *Tree) RunSimulations() error {
	for i := 0; i < t.conf.Simulations; i++ {
		if err := t.RunSimulation(); err != nil {
			return err
		}
	}
	return nil
}

// MoveProb pairs a root move with its search probability.
type MoveProb struct {
	Move *chess.Move
	Prob float32
}

// MoveDistribution converts the root children's visit counts into a
// probability distribution, in the children's fixed expansion order. At or
// below the deterministic temperature threshold the distribution is one-hot
// at the most visited child (first-encountered maximum on ties). Otherwise
// visit counts are exponentiated with 1/temperature, stabilized by
// subtracting the maximum log-visit before exponentiating. A childless root
// yields nil.
func (t *Tree) MoveDistribution(temperature float32) []MoveProb {
	if t.root == nil || len(t.root.order) == 0 {
		return nil
	}
	kids := t.root.order
	out := make([]MoveProb, len(kids))
	for i, c := range kids {
		out[i] = MoveProb{Move: c.move}
	}

	if temperature <= deterministicTemperature {
		best, bestVisits := 0, -1
		for i, c := range kids {
			if c.visits > bestVisits {
				best, bestVisits = i, c.visits
			}
		}
		out[best].Prob = 1
		return out
	}

	logs := make([]float32, len(kids))
	maxLog := math32.Inf(-1)
	for i, c := range kids {
		logs[i] = math32.Log(float32(c.visits))
		if logs[i] > maxLog {
			maxLog = logs[i]
		}
	}
	if math32.IsInf(maxLog, -1) {
		// no simulation has reached any child yet
		uniform := 1 / float32(len(kids))
		for i := range out {
			out[i].Prob = uniform
		}
		return out
	}
	var sum float32
	for i := range kids {
		e := math32.Exp((logs[i] - maxLog) / temperature)
		out[i].Prob = e
		sum += e
	}
	for i := range out {
		out[i].Prob /= sum
	}
	return out
}

// Advance re-roots the tree at the child reached by the move, preserving the
// accumulated statistics below it; the new root's parent link is cleared so
// the discarded remainder of the tree can be released. A legal move that was
// never explored discards the tree and re-roots from scratch.
func (t *Tree) Advance(m *chess.Move) error {
	if t.root == nil {
		return errors.New("no root: call SetRoot first")
	}
	key := game.KeyOf(m)
	if child, ok := t.root.children[key]; ok {
		child.parent = nil
		t.root = child
		return nil
	}
	var played *chess.Move
	for _, legal := range t.root.state.LegalMoves() {
		if game.KeyOf(legal) == key {
			played = legal
			break
		}
	}
	if played == nil {
		return errors.Errorf("advance: illegal move %s", key.UCI())
	}
	return t.SetRoot(t.root.state.Apply(played))
}

// Root returns the current root node for inspection.
func (t *Tree) Root() *Node { return t.root }

// RootVisits returns the root's visit count, the number of simulations that
// have passed through the current root.
func (t *Tree) RootVisits() int {
	if t.root == nil {
		return 0
	}
	return t.root.visits
}

// Child returns the root child reached by the move, if it exists.
func (t *Tree) Child(m *chess.Move) (*Node, bool) {
	if t.root == nil {
		return nil, false
	}
	c, ok := t.root.children[game.KeyOf(m)]
	return c, ok
}
