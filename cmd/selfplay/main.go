// Command selfplay generates one iteration of self-play training data from
// an exported ONNX model and writes it to a parquet dataset, with an
// optional checkpoint carrying the iteration counter and history.
package main

import (
	"flag"
	"log"
	"os"

	pawnstorm "github.com/pawnstorm"
	"github.com/pawnstorm/game"
	"github.com/pawnstorm/mcts"
	"github.com/pawnstorm/nn"
)

var (
	modelPath      = flag.String("model", "", "path to the exported .onnx model")
	outPath        = flag.String("out", "selfplay.parquet", "parquet dataset to write")
	checkpointPath = flag.String("checkpoint", "", "optional checkpoint file to update")
	games          = flag.Int("games", 100, "games to play this iteration")
	workers        = flag.Int("workers", 4, "parallel self-play workers")
	simulations    = flag.Int("simulations", 800, "simulations per move decision")
	cPuct          = flag.Float64("c_puct", 1.4, "exploration constant")
	temperature    = flag.Float64("temperature", 1.0, "move sampling temperature")
	maxPlies       = flag.Int("max_plies", 200, "hard cap on game length")
	history        = flag.Int("history", 8, "boards per encoded position")
	seed           = flag.Int64("seed", 42, "base random seed")
)

func main() {
	flag.Parse()
	if *modelPath == "" {
		log.Fatal("missing -model")
	}

	model, err := os.ReadFile(*modelPath)
	if err != nil {
		log.Fatalf("read model: %s", err)
	}

	nnConf := nn.DefaultConfig(game.Moves().Size())
	nnConf.History = *history

	selfPlayConf := pawnstorm.SelfPlayConfig{
		Games:       *games,
		Workers:     *workers,
		Temperature: float32(*temperature),
		MaxPlies:    *maxPlies,
		History:     *history,
		Seed:        *seed,
	}
	mctsConf := mcts.Config{
		CPuct:       float32(*cPuct),
		Simulations: *simulations,
	}

	factory := func(weights []byte) (pawnstorm.Inferer, error) {
		return nn.NewOnnxInferer(weights, nnConf)
	}

	sp := pawnstorm.NewSelfPlay(selfPlayConf, mctsConf, factory)
	records, stats, err := sp.Run(model)
	if err != nil {
		log.Fatalf("self-play failed: %+v", err)
	}
	log.Printf("self-play done: %v", stats)

	iteration := 0
	var store *pawnstorm.CheckpointStore
	if *checkpointPath != "" {
		store = pawnstorm.NewCheckpointStore(*checkpointPath)
		if store.Exists() {
			ck, err := store.Load()
			if err != nil {
				log.Fatalf("load checkpoint: %s", err)
			}
			iteration = ck.Iteration
		}
	}

	if err := pawnstorm.WriteDataset(*outPath, iteration, records); err != nil {
		log.Fatalf("write dataset: %s", err)
	}
	log.Printf("wrote %d games to %s", len(records), *outPath)

	if store != nil {
		ck := &pawnstorm.Checkpoint{Iteration: iteration + 1, Weights: model}
		for _, rec := range records {
			ck.Results = append(ck.Results, rec.Result)
			ck.GameLengths = append(ck.GameLengths, rec.Length)
		}
		if err := store.Save(ck); err != nil {
			log.Fatalf("save checkpoint: %s", err)
		}
	}
}
