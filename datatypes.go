package pawnstorm

import (
	"io"

	"github.com/pawnstorm/mcts"
	"github.com/pawnstorm/nn"
)

// Inferer is anything that can run one network forward pass over an encoded
// position, returning raw scores over the full move-index space and a value
// estimate already projected into [-1, 1].
type Inferer interface {
	Infer(input []float32) (policy []float32, value float32, err error)
	io.Closer
}

// InfererFactory builds a fresh Inferer from an opaque weight snapshot. Each
// self-play worker calls it exactly once at start, so no two workers ever
// share mutable network state.
type InfererFactory func(weights []byte) (Inferer, error)

// Example is one training triple: an encoded position, the search's target
// distribution over the full move-index space, and the game outcome from the
// perspective of the side that was to move.
type Example struct {
	Input  []float32
	Policy []float32
	Value  float32
}

// Learner is the external training loop. It consumes one iteration's batch
// and returns an updated weight snapshot; its optimizer internals are none
// of our business.
type Learner interface {
	Train(batch *Batch) (weights []byte, err error)
}

// Config for the Trainer.
type Config struct {
	Name               string         `json:"name"`
	NNConf             nn.Config      `json:"nn_conf"`
	MCTSConf           mcts.Config    `json:"mcts_conf"`
	SelfPlayConf       SelfPlayConfig `json:"self_play_conf"`
	CheckpointInterval int            `json:"checkpoint_interval"`
}
