package model_test

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/herd/internal/model"
)

func TestNewTaskID(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	id := model.NewTaskID(now)

	require.True(t, strings.HasPrefix(id, "task-"))

	// The id embeds the creation time in base 36 followed by a 4 char random
	// suffix.
	rest := strings.TrimPrefix(id, "task-")
	tsPart := rest[:len(rest)-4]
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), ts)
}

func TestNewAgentID(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	id := model.NewAgentID(now)
	assert.True(t, strings.HasPrefix(id, "agent-"))
}

func TestIDsDiffer(t *testing.T) {
	now := time.Now()

	seen := map[string]struct{}{}
	for range 50 {
		id := model.NewTaskID(now)
		_, ok := seen[id]
		require.False(t, ok, "duplicate id generated: %s", id)
		seen[id] = struct{}{}
	}
}
