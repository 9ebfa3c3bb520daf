package pawnstorm

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/notnil/chess"
	"github.com/pkg/errors"

	"github.com/pawnstorm/game"
	"github.com/pawnstorm/mcts"
)

// SelfPlayConfig configures one iteration of self-play data generation.
type SelfPlayConfig struct {
	Games       int     `json:"games"`       // total games per iteration
	Workers     int     `json:"workers"`     // parallel share-nothing workers
	Temperature float32 `json:"temperature"` // visit-count sampling temperature
	MaxPlies    int     `json:"max_plies"`   // hard cap to bound runaway games
	History     int     `json:"history"`     // boards per encoded position
	Seed        int64   `json:"seed"`        // base seed; worker i derives its own
}

func DefaultSelfPlayConfig() SelfPlayConfig {
	return SelfPlayConfig{
		Games:       100,
		Workers:     4,
		Temperature: 1.0,
		MaxPlies:    200,
		History:     8,
		Seed:        42,
	}
}

func (c SelfPlayConfig) IsValid() bool {
	return c.Games > 0 &&
		c.Workers > 0 &&
		c.Temperature > 0 &&
		c.MaxPlies > 0 &&
		c.History > 0
}

// Control carries the cooperative stop and pause signals shared by every
// worker. Stop is honoured between games and pause between moves, never
// mid-simulation, so a paused or cancelled run can't leave a tree in a
// partially expanded state.
type Control struct {
	stop  atomic.Bool
	pause atomic.Bool
}

// Stop asks workers to return after the game in flight.
func (c *Control) Stop() { c.stop.Store(true) }

// Stopped reports whether a stop was requested.
func (c *Control) Stopped() bool { return c.stop.Load() }

// Pause suspends workers at their next between-moves boundary.
func (c *Control) Pause() { c.pause.Store(true) }

// Resume lifts a pause.
func (c *Control) Resume() { c.pause.Store(false) }

// Paused reports whether workers are currently asked to hold.
func (c *Control) Paused() bool { return c.pause.Load() }

func (c *Control) waitIfPaused() {
	for c.pause.Load() && !c.stop.Load() {
		time.Sleep(50 * time.Millisecond)
	}
}

// GameRecord is the immutable product of one finished self-play game.
type GameRecord struct {
	Examples      []Example
	Result        float32 // final result from White's perspective
	Length        int     // recorded positions
	AvgRootVisits float64 // mean root visit count across the game's moves
}

// SelfPlay drives one iteration of parallel self-play. Workers are isolated:
// each builds its own Inferer from the weight snapshot, seeds its own random
// source and owns a fresh search tree per game, so nothing mutable is shared
// while games are in flight. Results are merged by a synchronous join.
type SelfPlay struct {
	conf    SelfPlayConfig
	mctsCnf mcts.Config
	factory InfererFactory
	ctl     *Control
}

func NewSelfPlay(conf SelfPlayConfig, mctsConf mcts.Config, factory InfererFactory) *SelfPlay {
	if !conf.IsValid() {
		panic("self-play config is not valid, unable to proceed")
	}
	if !mctsConf.IsValid() {
		panic("mcts config is not valid, unable to proceed")
	}
	return &SelfPlay{
		conf:    conf,
		mctsCnf: mctsConf,
		factory: factory,
		ctl:     &Control{},
	}
}

// Control exposes the shared stop/pause signals.
func (s *SelfPlay) Control() *Control { return s.ctl }

// Run plays the configured number of games across workers and merges the
// results. A failed worker contributes whatever complete games it finished
// and is surfaced in the stats; Run itself only errors when no worker
// produced anything.
func (s *SelfPlay) Run(weights []byte) ([]GameRecord, *IterationStats, error) {
	counts := partitionGames(s.conf.Games, s.conf.Workers)

	type workerResult struct {
		id      int
		records []GameRecord
		err     error
	}
	results := make(chan workerResult, len(counts))
	var wg sync.WaitGroup
	for i, n := range counts {
		if n == 0 {
			continue
		}
		wg.Add(1)
		go func(id, games int) {
			defer wg.Done()
			records, err := s.runWorker(id, games, weights)
			results <- workerResult{id: id, records: records, err: err}
		}(i, n)
	}
	wg.Wait()
	close(results)

	var all []GameRecord
	var werr error
	workerErrors := 0
	for res := range results {
		all = append(all, res.records...)
		if res.err != nil {
			werr = multierror.Append(werr, errors.WithMessage(res.err, fmt.Sprintf("worker %d", res.id)))
			workerErrors++
			log.Printf("self-play worker %d failed: %v", res.id, res.err)
		}
	}

	stats := newIterationStats(all)
	stats.WorkerErrors = workerErrors
	stats.Errors = werr
	if len(all) == 0 && werr != nil {
		return nil, stats, werr
	}
	return all, stats, nil
}

// partitionGames splits total games as evenly as possible, handing the
// remainder to the first workers.
func partitionGames(games, workers int) []int {
	if workers < 1 {
		workers = 1
	}
	counts := make([]int, workers)
	per, rem := games/workers, games%workers
	for i := range counts {
		counts[i] = per
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

// runWorker builds a worker's private evaluator and random source and plays
// its assigned games sequentially. Panics are captured so a bad worker never
// takes its siblings down; already finished games are still returned.
func (s *SelfPlay) runWorker(id, games int, weights []byte) (records []GameRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("self-play worker panic: %v", r)
		}
	}()

	inf, err := s.factory(weights)
	if err != nil {
		return nil, errors.WithMessage(err, "build inferer")
	}
	defer inf.Close()

	w := &worker{
		id:   id,
		eval: NewEvaluator(inf, s.conf.History),
		rng:  rand.New(rand.NewSource(s.conf.Seed + int64(id)*1000003)),
		conf: s.conf,
		mcts: s.mctsCnf,
		ctl:  s.ctl,
	}
	for g := 0; g < games; g++ {
		if s.ctl.Stopped() {
			break
		}
		rec, gerr := w.playGame()
		if gerr != nil {
			return records, gerr
		}
		records = append(records, rec)
	}
	return records, nil
}

type worker struct {
	id   int
	eval mcts.Evaluator
	rng  *rand.Rand
	conf SelfPlayConfig
	mcts mcts.Config
	ctl  *Control
}

// playGame drives one full game from the standard initial position.
func (w *worker) playGame() (GameRecord, error) {
	return w.playGameFrom(game.NewState())
}

// playGameFrom drives one full game from the given state. At each ply it
// spends the whole simulation budget, records the encoded position and the
// search's target distribution, then samples the move to play from that
// distribution (sampling, not argmax, for training diversity) and advances
// the tree. The game stops at a natural end or the ply cap.
func (w *worker) playGameFrom(state *game.State) (GameRecord, error) {
	tree := mcts.New(w.mcts, w.eval)
	if err := tree.SetRoot(state); err != nil {
		return GameRecord{}, err
	}

	type ply struct {
		input  []float32
		policy []float32
		turn   chess.Color
	}
	var plies []ply
	var totalVisits, counted int

	for moves := 0; moves < w.conf.MaxPlies; moves++ {
		if ended, _ := state.Terminal(); ended {
			break
		}
		w.ctl.waitIfPaused()

		if err := tree.RunSimulations(); err != nil {
			return GameRecord{}, err
		}
		dist := tree.MoveDistribution(w.conf.Temperature)
		if len(dist) == 0 {
			break
		}

		plies = append(plies, ply{
			input:  game.EncodeHistory(state, w.conf.History),
			policy: policyTarget(dist),
			turn:   state.Turn(),
		})

		move := sampleMove(w.rng, dist)
		state = state.Apply(move)
		if err := tree.Advance(move); err != nil {
			return GameRecord{}, err
		}
		totalVisits += tree.RootVisits()
		counted++
	}

	rec := GameRecord{
		Examples: make([]Example, len(plies)),
		Result:   state.Result(),
		Length:   len(plies),
	}
	if counted > 0 {
		rec.AvgRootVisits = float64(totalVisits) / float64(counted)
	}

	// Outcome labels are oriented to the side that was to move at each
	// recorded position. Only a checkmate produces nonzero labels; capped
	// and drawn games label every position zero.
	var winner chess.Color
	if state.Checkmate() {
		winner = state.Turn().Other()
	} else {
		winner = chess.NoColor
	}
	for i, p := range plies {
		value := float32(0)
		if winner != chess.NoColor {
			if p.turn == winner {
				value = 1
			} else {
				value = -1
			}
		}
		rec.Examples[i] = Example{Input: p.input, Policy: p.policy, Value: value}
	}
	return rec, nil
}

// policyTarget expands a root distribution into a dense vector over the full
// move-index space. A move that fails index lookup is skipped for this
// position only.
func policyTarget(dist []mcts.MoveProb) []float32 {
	target := make([]float32, game.Moves().Size())
	for _, mp := range dist {
		idx, ok := game.Moves().Index(game.KeyOf(mp.Move))
		if !ok {
			continue
		}
		target[idx] = mp.Prob
	}
	return target
}

// sampleMove draws one move from the search distribution.
func sampleMove(rng *rand.Rand, dist []mcts.MoveProb) *chess.Move {
	var sum float32
	for _, mp := range dist {
		sum += mp.Prob
	}
	r := rng.Float32() * sum
	var acc float32
	for _, mp := range dist {
		acc += mp.Prob
		if r < acc {
			return mp.Move
		}
	}
	return dist[len(dist)-1].Move
}
