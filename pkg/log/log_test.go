package log

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	assert.Equal(t, "01HZX3", TraceID("01HZX3"))

	for _, in := range []string{"", "unknown"} {
		id := TraceID(in)
		_, err := uuid.Parse(id)
		assert.NoError(t, err, in)
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, "warning", levelFromEnv().String())

	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, "debug", levelFromEnv().String())
}
