package pawnstorm

import (
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"
)

// SampleRow is one self-play position as stored on disk, so an external
// training loop can consume iterations offline.
type SampleRow struct {
	Iteration int32     `parquet:"iteration"`
	Game      int32     `parquet:"game"`
	Ply       int32     `parquet:"ply"`
	Input     []float32 `parquet:"input"`
	Policy    []float32 `parquet:"policy"`
	Value     float32   `parquet:"value"`
	Result    float32   `parquet:"result"`
}

// WriteDataset writes one iteration's game records to a zstd-compressed
// parquet file, one row per recorded position.
func WriteDataset(path string, iteration int, records []GameRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithMessagef(err, "create dataset %s", path)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[SampleRow](f, parquet.Compression(&zstd.Codec{}))
	for g, rec := range records {
		rows := make([]SampleRow, len(rec.Examples))
		for i, ex := range rec.Examples {
			rows[i] = SampleRow{
				Iteration: int32(iteration),
				Game:      int32(g),
				Ply:       int32(i),
				Input:     ex.Input,
				Policy:    ex.Policy,
				Value:     ex.Value,
				Result:    rec.Result,
			}
		}
		if _, err := w.Write(rows); err != nil {
			return errors.WithMessagef(err, "write game %d", g)
		}
	}
	if err := w.Close(); err != nil {
		return errors.WithMessage(err, "close parquet writer")
	}
	return nil
}

// ReadDataset loads every sample row from a parquet dataset file.
func ReadDataset(path string) ([]SampleRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "open dataset %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rows, err := parquet.Read[SampleRow](f, info.Size())
	if err != nil {
		return nil, errors.WithMessage(err, "read rows")
	}
	return rows, nil
}
