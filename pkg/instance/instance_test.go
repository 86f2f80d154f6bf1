package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersOverride(t *testing.T) {
	t.Setenv(EnvInstanceID, "sync-worker-2")
	assert.Equal(t, "sync-worker-2", ID())
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv(EnvInstanceID, "")
	assert.NotEmpty(t, ID())
}
