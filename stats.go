package pawnstorm

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// IterationStats aggregates one self-play iteration for monitoring. Wins and
// losses are counted from White's perspective, matching GameRecord.Result.
type IterationStats struct {
	TotalGames    int
	Wins          int
	Losses        int
	Draws         int
	GameLengths   []int
	AvgGameLength float64
	AvgRootVisits float64
	WorkerErrors  int
	Errors        error // aggregated worker errors, nil when all succeeded
}

func newIterationStats(records []GameRecord) *IterationStats {
	s := &IterationStats{TotalGames: len(records)}
	if len(records) == 0 {
		return s
	}
	lengths := make([]float64, len(records))
	visits := make([]float64, len(records))
	for i, rec := range records {
		switch {
		case rec.Result > 0:
			s.Wins++
		case rec.Result < 0:
			s.Losses++
		default:
			s.Draws++
		}
		s.GameLengths = append(s.GameLengths, rec.Length)
		lengths[i] = float64(rec.Length)
		visits[i] = rec.AvgRootVisits
	}
	s.AvgGameLength = stat.Mean(lengths, nil)
	s.AvgRootVisits = stat.Mean(visits, nil)
	return s
}

func (s *IterationStats) String() string {
	return fmt.Sprintf("games %d, wins %d, losses %d, draws %d, avg length %.1f, avg root visits %.1f, worker errors %d",
		s.TotalGames, s.Wins, s.Losses, s.Draws, s.AvgGameLength, s.AvgRootVisits, s.WorkerErrors)
}
