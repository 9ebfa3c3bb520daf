package mcts

import (
	"testing"

	"github.com/notnil/chess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawnstorm/game"
)

// uniformEvaluator spreads probability evenly over legal moves and returns a
// fixed value estimate.
type uniformEvaluator struct {
	value float32
}

func (e uniformEvaluator) Evaluate(s *game.State) ([]Prior, float32, error) {
	legal := s.LegalMoves()
	if len(legal) == 0 {
		return nil, e.value, nil
	}
	priors := make([]Prior, len(legal))
	for i, m := range legal {
		priors[i] = Prior{Move: m, P: 1 / float32(len(legal))}
	}
	return priors, e.value, nil
}

// prunedEvaluator is uniform except that one move gets prior zero, so it is
// never attached as a child.
type prunedEvaluator struct {
	skip game.MoveKey
}

func (e prunedEvaluator) Evaluate(s *game.State) ([]Prior, float32, error) {
	legal := s.LegalMoves()
	priors := make([]Prior, 0, len(legal))
	for _, m := range legal {
		p := 1 / float32(len(legal))
		if game.KeyOf(m) == e.skip {
			p = 0
		}
		priors = append(priors, Prior{Move: m, P: p})
	}
	return priors, 0, nil
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(*game.State) ([]Prior, float32, error) {
	return nil, 0, errors.New("malformed input")
}

func findMove(t *testing.T, s *game.State, uci string) *chess.Move {
	t.Helper()
	for _, m := range s.LegalMoves() {
		if game.KeyOf(m).UCI() == uci {
			return m
		}
	}
	t.Fatalf("move %s is not legal here", uci)
	return nil
}

func TestVisitConservation(t *testing.T) {
	const n = 40
	tree := New(Config{CPuct: 1.4, Simulations: n}, uniformEvaluator{})
	require.NoError(t, tree.SetRoot(game.NewState()))
	require.NoError(t, tree.RunSimulations())

	assert.Equal(t, n, tree.RootVisits())

	total := 0
	for _, child := range tree.Root().order {
		total += child.visits
	}
	// the root was expanded by SetRoot, so every simulation descends into
	// exactly one child
	assert.Equal(t, n, total)
}

func TestTemperatureCollapse(t *testing.T) {
	tree := New(DefaultConfig(), uniformEvaluator{})
	require.NoError(t, tree.SetRoot(game.NewState()))

	kids := tree.Root().order
	require.GreaterOrEqual(t, len(kids), 3)
	for _, c := range kids {
		c.visits = 0
	}
	kids[0].visits = 3
	kids[1].visits = 10
	kids[2].visits = 1

	dist := tree.MoveDistribution(1e-3)
	require.Len(t, dist, len(kids))
	for i, mp := range dist {
		if i == 1 {
			assert.Equal(t, float32(1), mp.Prob)
		} else {
			assert.Equal(t, float32(0), mp.Prob)
		}
	}
}

func TestMoveDistributionTemperatureOne(t *testing.T) {
	tree := New(DefaultConfig(), uniformEvaluator{})
	require.NoError(t, tree.SetRoot(game.NewState()))

	kids := tree.Root().order
	for _, c := range kids {
		c.visits = 0
	}
	kids[0].visits = 6
	kids[1].visits = 3
	kids[2].visits = 1

	dist := tree.MoveDistribution(1.0)
	var sum float32
	for _, mp := range dist {
		sum += mp.Prob
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	// visits^(1/T) with T=1 keeps proportionality: 6:3:1
	assert.InDelta(t, 0.6, dist[0].Prob, 1e-5)
	assert.InDelta(t, 0.3, dist[1].Prob, 1e-5)
	assert.InDelta(t, 0.1, dist[2].Prob, 1e-5)
	// unvisited children keep exactly zero mass
	for _, mp := range dist[3:] {
		assert.Equal(t, float32(0), mp.Prob)
	}
}

func TestMoveDistributionEmptyRoot(t *testing.T) {
	// checkmated position: no legal moves at all
	state, err := game.StateFromFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	require.NoError(t, err)

	tree := New(DefaultConfig(), uniformEvaluator{})
	require.NoError(t, tree.SetRoot(state))
	assert.Empty(t, tree.Root().order)
	assert.Nil(t, tree.MoveDistribution(1.0))
}

func TestAdvanceReusesSubtree(t *testing.T) {
	tree := New(Config{CPuct: 1.4, Simulations: 60}, uniformEvaluator{})
	state := game.NewState()
	require.NoError(t, tree.SetRoot(state))
	require.NoError(t, tree.RunSimulations())

	move := findMove(t, state, "e2e4")
	child, ok := tree.Child(move)
	require.True(t, ok)
	visits, q := child.visits, child.q
	require.Greater(t, visits, 0)

	require.NoError(t, tree.Advance(move))
	assert.Same(t, child, tree.Root())
	assert.Nil(t, tree.Root().parent)
	assert.Equal(t, visits, tree.Root().visits)
	assert.Equal(t, q, tree.Root().q)
}

func TestAdvanceUnexploredMoveRebuilds(t *testing.T) {
	state := game.NewState()
	skip := game.KeyOf(findMove(t, state, "e2e4"))

	tree := New(Config{CPuct: 1.4, Simulations: 10}, prunedEvaluator{skip: skip})
	require.NoError(t, tree.SetRoot(state))
	require.NoError(t, tree.RunSimulations())

	_, ok := tree.Child(findMove(t, state, "e2e4"))
	require.False(t, ok, "zero-prior move must not be attached")

	require.NoError(t, tree.Advance(findMove(t, state, "e2e4")))
	assert.Equal(t, 0, tree.Root().visits)
	assert.NotEmpty(t, tree.Root().order, "fresh root must be expanded")
	assert.Equal(t, chess.Black, tree.Root().state.Turn())
}

func TestAdvanceIllegalMove(t *testing.T) {
	state := game.NewState()
	tree := New(DefaultConfig(), uniformEvaluator{})
	require.NoError(t, tree.SetRoot(state))

	// e7e5 is a legal move, but not in the root's position
	after := state.Apply(findMove(t, state, "e2e4"))
	var illegal *chess.Move
	for _, m := range after.LegalMoves() {
		if game.KeyOf(m).UCI() == "e7e5" {
			illegal = m
		}
	}
	require.NotNil(t, illegal)
	assert.Error(t, tree.Advance(illegal))
}

func TestTerminalLeafUsesExactOutcome(t *testing.T) {
	// black mates in one with Qd8h4; the evaluator's value estimate must be
	// ignored at the terminal leaf
	state, err := game.StateFromFEN("rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2")
	require.NoError(t, err)

	tree := New(Config{CPuct: 1.4, Simulations: 200}, uniformEvaluator{value: 0})
	require.NoError(t, tree.SetRoot(state))
	require.NoError(t, tree.RunSimulations())

	mate, ok := tree.Child(findMove(t, state, "d8h4"))
	require.True(t, ok)
	require.Greater(t, mate.visits, 0)
	// from the mover's perspective the mating move is a certain win
	assert.InDelta(t, 1.0, float64(mate.q), 1e-6)

	dist := tree.MoveDistribution(1e-4)
	var best *chess.Move
	for _, mp := range dist {
		if mp.Prob == 1 {
			best = mp.Move
		}
	}
	require.NotNil(t, best)
	assert.Equal(t, "d8h4", game.KeyOf(best).UCI())
}

func TestEvaluatorFailurePropagates(t *testing.T) {
	tree := New(DefaultConfig(), failingEvaluator{})
	err := tree.SetRoot(game.NewState())
	assert.Error(t, err)
}

func TestEndToEndOpeningSearch(t *testing.T) {
	state := game.NewState()
	tree := New(Config{CPuct: 1.4, Simulations: 50}, uniformEvaluator{})
	require.NoError(t, tree.SetRoot(state))
	require.NoError(t, tree.RunSimulations())

	dist := tree.MoveDistribution(1.0)
	require.Len(t, dist, 20, "twenty legal opening moves")

	legal := make(map[game.MoveKey]bool)
	for _, m := range state.LegalMoves() {
		legal[game.KeyOf(m)] = true
	}
	var sum float32
	for _, mp := range dist {
		assert.True(t, legal[game.KeyOf(mp.Move)], "%s is not a legal opening move", game.KeyOf(mp.Move).UCI())
		sum += mp.Prob
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestSelectionPrefersHigherPrior(t *testing.T) {
	state := game.NewState()
	root := newNode(nil, 1, state, nil)
	legal := state.LegalMoves()
	priors := make([]Prior, len(legal))
	for i, m := range legal {
		priors[i] = Prior{Move: m, P: 0.01}
	}
	priors[3].P = 0.9
	root.expand(priors)
	root.visits = 1

	picked := root.selectChild(1.4)
	assert.Equal(t, game.KeyOf(legal[3]), game.KeyOf(picked.move))
}
