package yamlfile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage/yamlfile"
)

var t0 = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *yamlfile.Repository {
	repo, err := yamlfile.NewRepository(yamlfile.RepositoryConfig{
		DataDir: t.TempDir(),
		Now:     func() time.Time { return t0 },
	})
	require.NoError(t, err)
	return repo
}

func TestRepositoryDocumentLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newTestRepo(t)

	// Loading before init must fail with a recognizable error.
	_, err := repo.GetDocument(ctx)
	assert.ErrorIs(err, model.ErrNotInitialized)

	doc, err := repo.InitDocument(ctx, "api-rewrite")
	require.NoError(err)
	assert.Equal("api-rewrite", doc.Project)
	assert.Equal(model.DocumentVersion, doc.Version)

	// A second init on the same data dir must fail.
	_, err = repo.InitDocument(ctx, "api-rewrite")
	assert.ErrorIs(err, model.ErrAlreadyExists)

	// Mutations must survive a save and load round trip.
	doc.Tasks["task-a"] = &model.Task{
		ID:        "task-a",
		Name:      "build parser",
		Status:    model.TaskStatusPending,
		Priority:  3,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	doc.Locks["src/auth.py"] = []*model.FileLock{{
		Path:       "src/auth.py",
		AgentID:    "agent-1",
		Methods:    []string{"login"},
		AcquiredAt: t0,
		ExpiresAt:  t0.Add(30 * time.Minute),
	}}
	require.NoError(repo.SaveDocument(ctx, doc))

	loaded, err := repo.GetDocument(ctx)
	require.NoError(err)
	require.Contains(loaded.Tasks, "task-a")
	assert.Equal("build parser", loaded.Tasks["task-a"].Name)
	require.Len(loaded.Locks["src/auth.py"], 1)
	assert.Equal([]string{"login"}, loaded.Locks["src/auth.py"][0].Methods)
	assert.True(loaded.Locks["src/auth.py"][0].ExpiresAt.Equal(t0.Add(30 * time.Minute)))
}

func TestRepositoryTaskOutputs(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newTestRepo(t)

	_, err := repo.ReadTaskOutput(ctx, "task-a")
	assert.ErrorIs(err, model.ErrNotFound)

	ref, err := repo.WriteTaskOutput(ctx, "task-a", "detailed notes")
	require.NoError(err)
	assert.Equal("outputs/task-a.md", ref)

	content, err := repo.ReadTaskOutput(ctx, "task-a")
	require.NoError(err)
	assert.Equal("detailed notes", content)
}

func TestRepositoryLocalIdentity(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newTestRepo(t)

	_, err := repo.GetLocalAgentID(ctx)
	assert.ErrorIs(err, model.ErrNotFound)

	require.NoError(repo.SaveLocalAgentID(ctx, "agent-1"))

	id, err := repo.GetLocalAgentID(ctx)
	require.NoError(err)
	assert.Equal("agent-1", id)

	require.NoError(repo.ClearLocalAgentID(ctx))
	_, err = repo.GetLocalAgentID(ctx)
	assert.ErrorIs(err, model.ErrNotFound)

	// Clearing twice is a no-op.
	assert.NoError(repo.ClearLocalAgentID(ctx))
}
