package pawnstorm

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// Checkpoint is the opaque training state persisted between iterations:
// the current weight snapshot, the iteration counter and the accumulated
// result and game-length history.
type Checkpoint struct {
	Iteration   int
	Weights     []byte
	Results     []float32
	GameLengths []int
}

// CheckpointStore saves and loads checkpoints as gob blobs at a fixed path.
type CheckpointStore struct {
	path string
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Save writes the checkpoint, replacing any previous one.
func (c *CheckpointStore) Save(ck *Checkpoint) error {
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithMessagef(err, "create checkpoint %s", c.path)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(ck); err != nil {
		return errors.WithMessage(err, "encode checkpoint")
	}
	return nil
}

// Load reads the checkpoint back.
func (c *CheckpointStore) Load() (*Checkpoint, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	ck := &Checkpoint{}
	if err := gob.NewDecoder(f).Decode(ck); err != nil {
		return nil, errors.WithMessage(err, "decode checkpoint")
	}
	return ck, nil
}

// Exists reports whether a checkpoint is present on disk.
func (c *CheckpointStore) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}
