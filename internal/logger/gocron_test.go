package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGocronLoggerDemotesInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewGocronLogger(New(&buf, "info", true))

	l.Info("scheduler started")
	assert.Zero(t, buf.Len())

	l.Warn("job late", "job", "autocollect 08:00")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "job late", entry["msg"])
	assert.Equal(t, "gocron", entry["component"])
	assert.Equal(t, "autocollect 08:00", entry["job"])
}

func TestSchedulerArgs(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("remove: %w", gocron.ErrJobNotFound)
	assert.Equal(t,
		[]any{"error_kind", "job_not_found", "error", wrapped},
		schedulerArgs([]any{"error", wrapped}))

	assert.Equal(t, []any{"arg", 1, "value", "dangling"}, schedulerArgs([]any{42, 1, "dangling"}))
	assert.Empty(t, schedulerArgs(nil))
}
