package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	conf := DefaultConfig(8064)
	assert.True(t, conf.IsValid())
	assert.Equal(t, 8064, conf.ActionSpace)
	assert.Equal(t, 8*8*18*8, conf.InputSize())
}

func TestConfigIsValid(t *testing.T) {
	conf := DefaultConfig(8064)
	conf.History = 0
	assert.False(t, conf.IsValid())

	conf = DefaultConfig(8064)
	conf.ActionSpace = 0
	assert.False(t, conf.IsValid())

	assert.False(t, Config{}.IsValid())
}
