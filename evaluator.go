package pawnstorm

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/pawnstorm/game"
	"github.com/pawnstorm/mcts"
)

// priorFloor is the smallest probability a legal move can carry before
// renormalization. Legal moves whose mapped index falls outside the network
// output, or whose score is degenerate, get the floor instead of zero so
// every legal move stays selectable.
const priorFloor = 1e-8

// Evaluator turns a raw network into the probability-over-legal-moves plus
// value contract the search needs: encode the position, run one forward
// pass, softmax the scores into a simplex, then restrict and renormalize
// onto the legal-move subset.
type Evaluator struct {
	inf     Inferer
	history int
}

// NewEvaluator wraps an Inferer. history is the number of boards fed to the
// encoder per position; values below one encode only the current board.
func NewEvaluator(inf Inferer, history int) *Evaluator {
	if history < 1 {
		history = 1
	}
	return &Evaluator{inf: inf, history: history}
}

// Evaluate implements mcts.Evaluator. Every legal move receives a strictly
// positive probability and the returned priors sum to one; if the whole
// probability mass collapses even after flooring, the distribution falls
// back to uniform over legal moves. Inference failures propagate.
func (e *Evaluator) Evaluate(s *game.State) ([]mcts.Prior, float32, error) {
	input := game.EncodeHistory(s, e.history)
	raw, value, err := e.inf.Infer(input)
	if err != nil {
		return nil, 0, errors.WithMessage(err, "inference")
	}

	legal := s.LegalMoves()
	if len(legal) == 0 {
		return nil, value, nil
	}

	probs := softmax(raw)
	priors := make([]mcts.Prior, len(legal))
	var total float32
	for i, m := range legal {
		p := float32(priorFloor)
		if idx, ok := game.Moves().Index(game.KeyOf(m)); ok && idx < len(probs) {
			if v := probs[idx]; v > p && !math32.IsNaN(v) && !math32.IsInf(v, 0) {
				p = v
			}
		}
		priors[i] = mcts.Prior{Move: m, P: p}
		total += p
	}
	if total > 0 {
		for i := range priors {
			priors[i].P /= total
		}
	} else {
		uniform := 1 / float32(len(legal))
		for i := range priors {
			priors[i].P = uniform
		}
	}
	return priors, value, nil
}

// Close releases the underlying inference session.
func (e *Evaluator) Close() error { return e.inf.Close() }

// softmax normalizes raw scores into a probability simplex, stabilized by
// subtracting the maximum score. Degenerate inputs yield all zeros rather
// than NaNs; the caller's flooring handles the rest.
func softmax(raw []float32) []float32 {
	out := make([]float32, len(raw))
	if len(raw) == 0 {
		return out
	}
	max := math32.Inf(-1)
	for _, v := range raw {
		if v > max {
			max = v
		}
	}
	if math32.IsNaN(max) || math32.IsInf(max, 0) {
		return out
	}
	var sum float32
	for i, v := range raw {
		out[i] = math32.Exp(v - max)
		sum += out[i]
	}
	if sum <= 0 || math32.IsNaN(sum) || math32.IsInf(sum, 0) {
		return make([]float32, len(raw))
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
