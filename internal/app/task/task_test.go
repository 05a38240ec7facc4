package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/herd/internal/app/task"
	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage/memory"
)

var t0 = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T, mutate func(doc *model.Document)) *memory.Repository {
	repo, err := memory.NewRepository(memory.RepositoryConfig{Now: func() time.Time { return t0 }})
	require.NoError(t, err)

	_, err = repo.InitDocument(context.Background(), "test-project")
	require.NoError(t, err)

	if mutate != nil {
		doc, err := repo.GetDocument(context.Background())
		require.NoError(t, err)
		mutate(doc)
		require.NoError(t, repo.SaveDocument(context.Background(), doc))
	}

	return repo
}

func newTestService(t *testing.T, repo *memory.Repository) *task.Service {
	svc, err := task.NewService(task.ServiceConfig{
		Repository: repo,
		Outputs:    repo,
		Now:        func() time.Time { return t0 },
	})
	require.NoError(t, err)
	return svc
}

func testTask(id string, mutate func(*model.Task)) *model.Task {
	t := &model.Task{
		ID:           id,
		Name:         "task " + id,
		Status:       model.TaskStatusPending,
		Priority:     5,
		Dependencies: []string{},
		Dependents:   []string{},
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	if mutate != nil {
		mutate(t)
	}
	return t
}

func testAgent(id string) *model.Agent {
	return &model.Agent{
		ID:           id,
		Name:         id,
		ClaimedTasks: []string{},
		Status:       model.AgentStatusActive,
		LastActive:   t0,
		CreatedAt:    t0,
	}
}

func TestServiceNewService(t *testing.T) {
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	tests := map[string]struct {
		config task.ServiceConfig
		expErr bool
	}{
		"Missing repository should fail.": {
			config: task.ServiceConfig{Outputs: repo},
			expErr: true,
		},

		"Missing outputs repository should fail.": {
			config: task.ServiceConfig{Repository: repo},
			expErr: true,
		},

		"A valid configuration should create the service.": {
			config: task.ServiceConfig{Repository: repo, Outputs: repo},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := task.NewService(test.config)
			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestServiceAdd(t *testing.T) {
	tests := map[string]struct {
		doc     func(doc *model.Document)
		request task.AddRequest
		expErr  error
		check   func(assert *assert.Assertions, doc *model.Document, created *model.Task)
	}{
		"Adding a task without a name should fail.": {
			request: task.AddRequest{},
			expErr:  model.ErrNotValid,
		},

		"Adding a valid task should store it pending.": {
			request: task.AddRequest{Name: "build parser", Priority: 3},
			check: func(assert *assert.Assertions, doc *model.Document, created *model.Task) {
				stored, ok := doc.Tasks[created.ID]
				assert.True(ok)
				assert.Equal(model.TaskStatusPending, stored.Status)
				assert.Equal("build parser", stored.Name)
				assert.Equal(3, stored.Priority)
			},
		},

		"Adding a task with a negative priority should be accepted, priority is only an ordering hint.": {
			request: task.AddRequest{Name: "hotfix", Priority: -1},
			check: func(assert *assert.Assertions, doc *model.Document, created *model.Task) {
				assert.Equal(-1, doc.Tasks[created.ID].Priority)
			},
		},

		"Adding a task should wire reverse edges on existing dependencies only.": {
			doc: func(doc *model.Document) {
				doc.Tasks["task-dep"] = testTask("task-dep", nil)
			},
			request: task.AddRequest{Name: "dependent", Dependencies: []string{"task-dep", "task-ghost"}},
			check: func(assert *assert.Assertions, doc *model.Document, created *model.Task) {
				assert.Equal([]string{"task-dep", "task-ghost"}, created.Dependencies)
				assert.Contains(doc.Tasks["task-dep"].Dependents, created.ID)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := newTestRepo(t, test.doc)
			svc := newTestService(t, repo)

			created, err := svc.Add(context.Background(), test.request)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)

			doc, err := repo.GetDocument(context.Background())
			require.NoError(err)
			test.check(assert, doc, created)
		})
	}
}

func TestServiceList(t *testing.T) {
	inProgress := model.TaskStatusInProgress

	seed := func(doc *model.Document) {
		doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Priority = 2 })
		doc.Tasks["task-b"] = testTask("task-b", func(t *model.Task) {
			t.Priority = 1
			t.Status = model.TaskStatusInProgress
			t.AssignedTo = "agent-1"
		})
		doc.Tasks["task-c"] = testTask("task-c", func(t *model.Task) {
			t.Priority = 2
			t.Dependencies = []string{"task-a"}
		})
	}

	tests := map[string]struct {
		request task.ListRequest
		expIDs  []string
	}{
		"Listing without filters should return every task sorted by priority then id.": {
			request: task.ListRequest{},
			expIDs:  []string{"task-b", "task-a", "task-c"},
		},

		"Filtering by status should only return matching tasks.": {
			request: task.ListRequest{Status: &inProgress},
			expIDs:  []string{"task-b"},
		},

		"Filtering by agent should only return its tasks.": {
			request: task.ListRequest{AssignedTo: "agent-1"},
			expIDs:  []string{"task-b"},
		},

		"Filtering by availability should hide claimed and dependency-blocked tasks.": {
			request: task.ListRequest{OnlyAvailable: true},
			expIDs:  []string{"task-a"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := newTestRepo(t, seed)
			svc := newTestService(t, repo)

			tasks, err := svc.List(context.Background(), test.request)
			require.NoError(err)

			ids := make([]string, 0, len(tasks))
			for _, tk := range tasks {
				ids = append(ids, tk.ID)
			}
			assert.Equal(test.expIDs, ids)
		})
	}
}

func TestServiceClaim(t *testing.T) {
	tests := map[string]struct {
		doc        func(doc *model.Document)
		taskID     string
		agentID    string
		expErr     error
		expErrText string
	}{
		"Claiming a missing task should fail.": {
			doc:     func(doc *model.Document) { doc.Agents["agent-1"] = testAgent("agent-1") },
			taskID:  "task-ghost",
			agentID: "agent-1",
			expErr:  model.ErrNotFound,
		},

		"Claiming with a missing agent should fail.": {
			doc:     func(doc *model.Document) { doc.Tasks["task-a"] = testTask("task-a", nil) },
			taskID:  "task-a",
			agentID: "agent-ghost",
			expErr:  model.ErrNotFound,
		},

		"Claiming a completed task should report the status cause.": {
			doc: func(doc *model.Document) {
				doc.Agents["agent-1"] = testAgent("agent-1")
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Status = model.TaskStatusCompleted })
			},
			taskID:     "task-a",
			agentID:    "agent-1",
			expErr:     model.ErrConflict,
			expErrText: "is completed",
		},

		"Claiming an already assigned task should report the holder.": {
			doc: func(doc *model.Document) {
				doc.Agents["agent-1"] = testAgent("agent-1")
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.AssignedTo = "agent-2" })
			},
			taskID:     "task-a",
			agentID:    "agent-1",
			expErr:     model.ErrConflict,
			expErrText: "already assigned to agent-2",
		},

		"Claiming a task with uncompleted dependencies should report the cause.": {
			doc: func(doc *model.Document) {
				doc.Agents["agent-1"] = testAgent("agent-1")
				doc.Tasks["task-dep"] = testTask("task-dep", nil)
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Dependencies = []string{"task-dep"} })
			},
			taskID:     "task-a",
			agentID:    "agent-1",
			expErr:     model.ErrConflict,
			expErrText: "uncompleted dependencies",
		},

		"Claiming an available task should assign it.": {
			doc: func(doc *model.Document) {
				doc.Agents["agent-1"] = testAgent("agent-1")
				doc.Tasks["task-a"] = testTask("task-a", nil)
			},
			taskID:  "task-a",
			agentID: "agent-1",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := newTestRepo(t, test.doc)
			svc := newTestService(t, repo)

			claimed, err := svc.Claim(context.Background(), test.taskID, test.agentID)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				if test.expErrText != "" {
					assert.ErrorContains(err, test.expErrText)
				}
				return
			}
			require.NoError(err)

			assert.Equal(model.TaskStatusInProgress, claimed.Status)
			assert.Equal(test.agentID, claimed.AssignedTo)

			doc, err := repo.GetDocument(context.Background())
			require.NoError(err)
			assert.Contains(doc.Agents[test.agentID].ClaimedTasks, test.taskID)
		})
	}
}

func TestServiceClaimIsExclusive(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := newTestRepo(t, func(doc *model.Document) {
		doc.Agents["agent-1"] = testAgent("agent-1")
		doc.Agents["agent-2"] = testAgent("agent-2")
		doc.Tasks["task-a"] = testTask("task-a", nil)
	})
	svc := newTestService(t, repo)

	_, err := svc.Claim(context.Background(), "task-a", "agent-1")
	require.NoError(err)

	_, err = svc.Claim(context.Background(), "task-a", "agent-2")
	assert.ErrorIs(err, model.ErrConflict)
}

func TestServiceComplete(t *testing.T) {
	tests := map[string]struct {
		doc          func(doc *model.Document)
		request      task.CompleteRequest
		expErr       error
		expUnblocked []string
	}{
		"Completing a missing task should fail.": {
			request: task.CompleteRequest{TaskID: "task-ghost"},
			expErr:  model.ErrNotFound,
		},

		"Completing an already completed task should fail.": {
			doc: func(doc *model.Document) {
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Status = model.TaskStatusCompleted })
			},
			request: task.CompleteRequest{TaskID: "task-a"},
			expErr:  model.ErrInvalidState,
		},

		"Completing a task should record the result and free the agent's claim.": {
			doc: func(doc *model.Document) {
				doc.Agents["agent-1"] = testAgent("agent-1")
				doc.Agents["agent-1"].ClaimedTasks = []string{"task-a"}
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) {
					t.Status = model.TaskStatusInProgress
					t.AssignedTo = "agent-1"
				})
			},
			request:      task.CompleteRequest{TaskID: "task-a", Summary: "done"},
			expUnblocked: []string{},
		},

		"Completing the last dependency should unblock the dependent.": {
			doc: func(doc *model.Document) {
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) {
					t.Status = model.TaskStatusCompleted
					t.Dependents = []string{"task-c"}
				})
				doc.Tasks["task-b"] = testTask("task-b", func(t *model.Task) {
					t.Status = model.TaskStatusInProgress
					t.Dependents = []string{"task-c"}
				})
				doc.Tasks["task-c"] = testTask("task-c", func(t *model.Task) {
					t.Dependencies = []string{"task-a", "task-b"}
				})
			},
			request:      task.CompleteRequest{TaskID: "task-b", Summary: "done"},
			expUnblocked: []string{"task-c"},
		},

		"Completing a non-last dependency should not unblock the dependent.": {
			doc: func(doc *model.Document) {
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Dependents = []string{"task-c"} })
				doc.Tasks["task-b"] = testTask("task-b", func(t *model.Task) { t.Dependents = []string{"task-c"} })
				doc.Tasks["task-c"] = testTask("task-c", func(t *model.Task) {
					t.Dependencies = []string{"task-a", "task-b"}
				})
			},
			request:      task.CompleteRequest{TaskID: "task-a", Summary: "done"},
			expUnblocked: []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := newTestRepo(t, test.doc)
			svc := newTestService(t, repo)

			result, err := svc.Complete(context.Background(), test.request)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)

			assert.Equal(model.TaskStatusCompleted, result.Task.Status)
			require.NotNil(result.Task.Result)
			assert.Equal(test.request.Summary, result.Task.Result.Summary)
			assert.Equal(t0, result.Task.Result.CompletedAt)
			assert.Equal(test.expUnblocked, result.Unblocked)

			doc, err := repo.GetDocument(context.Background())
			require.NoError(err)
			if agent, ok := doc.Agents[result.Task.AssignedTo]; ok {
				assert.NotContains(agent.ClaimedTasks, test.request.TaskID)
			}
		})
	}
}

func TestServiceCompleteWithOutput(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := newTestRepo(t, func(doc *model.Document) {
		doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Status = model.TaskStatusInProgress })
	})
	svc := newTestService(t, repo)

	result, err := svc.Complete(context.Background(), task.CompleteRequest{
		TaskID:  "task-a",
		Summary: "done",
		Output:  "detailed notes",
	})
	require.NoError(err)

	assert.Equal("memory://task-a", result.Task.Result.OutputRef)

	content, err := repo.ReadTaskOutput(context.Background(), "task-a")
	require.NoError(err)
	assert.Equal("detailed notes", content)
}

func TestServiceDelete(t *testing.T) {
	tests := map[string]struct {
		doc    func(doc *model.Document)
		taskID string
		expErr error
		check  func(assert *assert.Assertions, doc *model.Document)
	}{
		"Deleting a missing task should fail.": {
			taskID: "task-ghost",
			expErr: model.ErrNotFound,
		},

		"Deleting a task should repair graph edges and the claim set.": {
			doc: func(doc *model.Document) {
				doc.Agents["agent-1"] = testAgent("agent-1")
				doc.Agents["agent-1"].ClaimedTasks = []string{"task-b"}
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Dependents = []string{"task-b"} })
				doc.Tasks["task-b"] = testTask("task-b", func(t *model.Task) {
					t.Status = model.TaskStatusInProgress
					t.AssignedTo = "agent-1"
					t.Dependencies = []string{"task-a"}
					t.Dependents = []string{"task-c"}
				})
				doc.Tasks["task-c"] = testTask("task-c", func(t *model.Task) { t.Dependencies = []string{"task-b"} })
			},
			taskID: "task-b",
			check: func(assert *assert.Assertions, doc *model.Document) {
				assert.NotContains(doc.Tasks, "task-b")
				assert.NotContains(doc.Tasks["task-a"].Dependents, "task-b")
				assert.NotContains(doc.Tasks["task-c"].Dependencies, "task-b")
				assert.NotContains(doc.Agents["agent-1"].ClaimedTasks, "task-b")
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := newTestRepo(t, test.doc)
			svc := newTestService(t, repo)

			err := svc.Delete(context.Background(), test.taskID)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)

			doc, err := repo.GetDocument(context.Background())
			require.NoError(err)
			test.check(assert, doc)
		})
	}
}

func TestServiceProgress(t *testing.T) {
	tests := map[string]struct {
		doc           func(doc *model.Document)
		expTotal      int
		expPercentage int
	}{
		"An empty workflow should report zero progress.": {
			expTotal:      0,
			expPercentage: 0,
		},

		"Percentage should round to the nearest integer.": {
			doc: func(doc *model.Document) {
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Status = model.TaskStatusCompleted })
				doc.Tasks["task-b"] = testTask("task-b", nil)
				doc.Tasks["task-c"] = testTask("task-c", nil)
			},
			expTotal:      3,
			expPercentage: 33,
		},

		"Two of three completed should round up.": {
			doc: func(doc *model.Document) {
				doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) { t.Status = model.TaskStatusCompleted })
				doc.Tasks["task-b"] = testTask("task-b", func(t *model.Task) { t.Status = model.TaskStatusCompleted })
				doc.Tasks["task-c"] = testTask("task-c", nil)
			},
			expTotal:      3,
			expPercentage: 67,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := newTestRepo(t, test.doc)
			svc := newTestService(t, repo)

			p, err := svc.Progress(context.Background())
			require.NoError(err)

			assert.Equal(test.expTotal, p.Total)
			assert.Equal(test.expPercentage, p.Percentage)
		})
	}
}

func TestServiceDependencyGraph(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := newTestRepo(t, func(doc *model.Document) {
		doc.Tasks["task-a"] = testTask("task-a", func(t *model.Task) {
			t.Name = "parser"
			t.Status = model.TaskStatusCompleted
		})
		doc.Tasks["task-b"] = testTask("task-b", func(t *model.Task) {
			t.Name = "codegen"
			t.Dependencies = []string{"task-a", "task-ghost"}
		})
	})
	svc := newTestService(t, repo)

	graph, err := svc.DependencyGraph(context.Background())
	require.NoError(err)

	expGraph := "graph TD\n" +
		"    task_a[\"✅ parser\"]\n" +
		"    task_b[\"⏳ codegen\"]\n" +
		"    task_a --> task_b\n"
	assert.Equal(expGraph, graph)
}
