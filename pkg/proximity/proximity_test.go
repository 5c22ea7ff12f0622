package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(12, 10))
	assert.Equal(t, 50.0, Progress(5, 10))
	assert.Equal(t, 100.0, Progress(0, 10))
	assert.Equal(t, 50.0, Progress(5, 0), "falls back to the default route length")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, Arriving, Label(95))
	assert.Equal(t, Nearby, Label(60))
	assert.Equal(t, OnTheWay, Label(10))
	assert.Equal(t, OnTheWay, Label(0))
}
