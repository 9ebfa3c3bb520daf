package pawnstorm

import (
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/pawnstorm/game"
)

// Batch is one iteration's flat training input: positions, target policies
// and outcome labels merged across every finished game from every worker.
type Batch struct {
	Inputs   *tensor.Dense // (n, squares, planes*history)
	Policies *tensor.Dense // (n, action space)
	Values   *tensor.Dense // (n)
	N        int
}

// BuildBatch flattens game records into tensors, shuffling the merged
// examples so consecutive positions from one game don't end up adjacent.
// All inputs must share one encoding width.
func BuildBatch(records []GameRecord, rng *rand.Rand) (*Batch, error) {
	var examples []Example
	for _, rec := range records {
		examples = append(examples, rec.Examples...)
	}
	if len(examples) == 0 {
		return nil, errors.New("no examples to batch, probably every game failed or was cancelled")
	}
	if rng != nil {
		rng.Shuffle(len(examples), func(i, j int) {
			examples[i], examples[j] = examples[j], examples[i]
		})
	}

	width := len(examples[0].Input) / game.SquareCount
	actionSpace := len(examples[0].Policy)
	var inputsBacking, policiesBacking, valuesBacking []float32
	for _, ex := range examples {
		if len(ex.Input) != width*game.SquareCount || len(ex.Policy) != actionSpace {
			return nil, errors.Errorf("inconsistent example shape: input %d, policy %d", len(ex.Input), len(ex.Policy))
		}
		inputsBacking = append(inputsBacking, ex.Input...)
		policiesBacking = append(policiesBacking, ex.Policy...)
		valuesBacking = append(valuesBacking, ex.Value)
	}

	n := len(examples)
	return &Batch{
		Inputs:   tensor.New(tensor.WithBacking(inputsBacking), tensor.WithShape(n, game.SquareCount, width)),
		Policies: tensor.New(tensor.WithBacking(policiesBacking), tensor.WithShape(n, actionSpace)),
		Values:   tensor.New(tensor.WithBacking(valuesBacking), tensor.WithShape(n)),
		N:        n,
	}, nil
}
