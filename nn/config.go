// Package nn holds the contract between the search core and the neural
// network: the fixed input/output tensor shapes plus inference backends. The
// network architecture itself is external; anything that can run a forward
// pass can drive the search.
package nn

// Config describes the tensor contract of a network.
type Config struct {
	Planes      int `json:"planes"`       // feature planes per board
	History     int `json:"history"`      // boards per input, oldest first
	Width       int `json:"width"`        // board width
	Height      int `json:"height"`       // board height
	ActionSpace int `json:"action_space"` // policy output size
	BatchSize   int `json:"batch_size"`   // training batch size
}

func DefaultConfig(actionSpace int) Config {
	return Config{
		Planes:      18,
		History:     8,
		Width:       8,
		Height:      8,
		ActionSpace: actionSpace,
		BatchSize:   256,
	}
}

func (c Config) IsValid() bool {
	return c.Planes > 0 &&
		c.History > 0 &&
		c.Width > 0 &&
		c.Height > 0 &&
		c.ActionSpace > 0 &&
		c.BatchSize >= 1
}

// InputSize is the flattened length of one encoded position.
func (c Config) InputSize() int {
	return c.Width * c.Height * c.Planes * c.History
}
