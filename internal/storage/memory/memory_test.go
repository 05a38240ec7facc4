package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage/memory"
)

var t0 = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)

func TestRepositorySnapshotIsolation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{Now: func() time.Time { return t0 }})
	require.NoError(err)

	_, err = repo.GetDocument(ctx)
	assert.ErrorIs(err, model.ErrNotInitialized)

	_, err = repo.InitDocument(ctx, "api-rewrite")
	require.NoError(err)

	_, err = repo.InitDocument(ctx, "api-rewrite")
	assert.ErrorIs(err, model.ErrAlreadyExists)

	// Mutating a loaded snapshot must not leak into the store until saved.
	doc, err := repo.GetDocument(ctx)
	require.NoError(err)
	doc.Tasks["task-a"] = &model.Task{ID: "task-a", Name: "a", Status: model.TaskStatusPending}

	fresh, err := repo.GetDocument(ctx)
	require.NoError(err)
	assert.Empty(fresh.Tasks)

	require.NoError(repo.SaveDocument(ctx, doc))

	fresh, err = repo.GetDocument(ctx)
	require.NoError(err)
	assert.Contains(fresh.Tasks, "task-a")

	// Mutating after the save must not leak either.
	doc.Tasks["task-a"].Name = "changed"
	fresh, err = repo.GetDocument(ctx)
	require.NoError(err)
	assert.Equal("a", fresh.Tasks["task-a"].Name)
}

func TestRepositoryTaskOutputs(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	_, err = repo.ReadTaskOutput(ctx, "task-a")
	assert.ErrorIs(err, model.ErrNotFound)

	ref, err := repo.WriteTaskOutput(ctx, "task-a", "notes")
	require.NoError(err)
	assert.Equal("memory://task-a", ref)

	content, err := repo.ReadTaskOutput(ctx, "task-a")
	require.NoError(err)
	assert.Equal("notes", content)
}
