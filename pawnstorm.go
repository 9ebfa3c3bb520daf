// Package pawnstorm is a chess self-play trainer core: a neural-network-
// guided Monte Carlo tree search plus the orchestration that turns repeated
// self-play games into training batches. The network itself is opaque: any
// Inferer can drive the search, and the training loop is an external Learner
// consuming the batches this package assembles.
package pawnstorm

import (
	"log"
	"math/rand"

	"github.com/pkg/errors"
)

// Trainer runs the iteration loop: self-play with the current weights,
// batch assembly, one Learner step, checkpoint.
type Trainer struct {
	conf     Config
	selfPlay *SelfPlay
	learner  Learner
	store    *CheckpointStore
	rng      *rand.Rand

	weights   []byte
	iteration int
	results   []float32
	lengths   []int
}

// New builds a Trainer. weights is the starting snapshot handed to every
// worker of the first iteration; store may be nil to disable checkpointing.
func New(conf Config, factory InfererFactory, learner Learner, store *CheckpointStore, weights []byte) *Trainer {
	if !conf.NNConf.IsValid() {
		panic("nn config is not valid, unable to proceed")
	}
	return &Trainer{
		conf:     conf,
		selfPlay: NewSelfPlay(conf.SelfPlayConf, conf.MCTSConf, factory),
		learner:  learner,
		store:    store,
		rng:      rand.New(rand.NewSource(conf.SelfPlayConf.Seed)),
		weights:  weights,
	}
}

// SelfPlay exposes the orchestrator, mainly for its Control signals.
func (t *Trainer) SelfPlay() *SelfPlay { return t.selfPlay }

// Weights returns the current snapshot.
func (t *Trainer) Weights() []byte { return t.weights }

// Resume restores iteration counter, weights and history from the store.
// Without a saved checkpoint it is a no-op.
func (t *Trainer) Resume() error {
	if t.store == nil || !t.store.Exists() {
		return nil
	}
	ck, err := t.store.Load()
	if err != nil {
		return errors.WithMessage(err, "resume")
	}
	t.iteration = ck.Iteration
	t.weights = ck.Weights
	t.results = ck.Results
	t.lengths = ck.GameLengths
	log.Printf("%s: resuming from iteration %d", t.conf.Name, t.iteration)
	return nil
}

// Learn runs iterations of self-play followed by one training step each,
// checkpointing at the configured interval and once more at the end.
func (t *Trainer) Learn(iterations int) error {
	if t.iteration >= iterations {
		return errors.Errorf("checkpoint iteration %d is at or past the requested total %d", t.iteration, iterations)
	}
	for ; t.iteration < iterations; t.iteration++ {
		log.Printf("%s: iteration %d/%d, generating self-play data", t.conf.Name, t.iteration+1, iterations)

		records, stats, err := t.selfPlay.Run(t.weights)
		if err != nil {
			return errors.WithMessagef(err, "self-play iteration %d", t.iteration)
		}
		log.Printf("%s: %v", t.conf.Name, stats)

		batch, err := BuildBatch(records, t.rng)
		if err != nil {
			return errors.WithMessagef(err, "batch iteration %d", t.iteration)
		}

		log.Print("begin training")
		weights, err := t.learner.Train(batch)
		if err != nil {
			return errors.WithMessagef(err, "train iteration %d", t.iteration)
		}
		t.weights = weights

		for _, rec := range records {
			t.results = append(t.results, rec.Result)
			t.lengths = append(t.lengths, rec.Length)
		}

		if t.store != nil && t.conf.CheckpointInterval > 0 && (t.iteration+1)%t.conf.CheckpointInterval == 0 {
			if err := t.saveCheckpoint(t.iteration + 1); err != nil {
				return err
			}
		}

		if t.selfPlay.Control().Stopped() {
			log.Printf("%s: stop requested, ending after iteration %d", t.conf.Name, t.iteration+1)
			t.iteration++
			break
		}
	}
	if t.store != nil {
		return t.saveCheckpoint(t.iteration)
	}
	return nil
}

func (t *Trainer) saveCheckpoint(iteration int) error {
	err := t.store.Save(&Checkpoint{
		Iteration:   iteration,
		Weights:     t.weights,
		Results:     t.results,
		GameLengths: t.lengths,
	})
	return errors.WithMessagef(err, "checkpoint iteration %d", iteration)
}
