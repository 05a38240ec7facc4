package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/herd/internal/model"
)

func TestDocumentTaskAvailable(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		doc          func() *model.Document
		task         func(d *model.Document) *model.Task
		expAvailable bool
	}{
		"A pending unassigned task without dependencies should be available": {
			doc: func() *model.Document {
				d := model.NewDocument("test", now)
				d.Tasks["task-1"] = &model.Task{ID: "task-1", Status: model.TaskStatusPending}
				return d
			},
			task:         func(d *model.Document) *model.Task { return d.Tasks["task-1"] },
			expAvailable: true,
		},

		"An in-progress task should not be available": {
			doc: func() *model.Document {
				d := model.NewDocument("test", now)
				d.Tasks["task-1"] = &model.Task{ID: "task-1", Status: model.TaskStatusInProgress}
				return d
			},
			task:         func(d *model.Document) *model.Task { return d.Tasks["task-1"] },
			expAvailable: false,
		},

		"An assigned task should not be available even while pending": {
			doc: func() *model.Document {
				d := model.NewDocument("test", now)
				d.Tasks["task-1"] = &model.Task{ID: "task-1", Status: model.TaskStatusPending, AssignedTo: "agent-1"}
				return d
			},
			task:         func(d *model.Document) *model.Task { return d.Tasks["task-1"] },
			expAvailable: false,
		},

		"A task with an uncompleted dependency should not be available": {
			doc: func() *model.Document {
				d := model.NewDocument("test", now)
				d.Tasks["task-1"] = &model.Task{ID: "task-1", Status: model.TaskStatusInProgress}
				d.Tasks["task-2"] = &model.Task{ID: "task-2", Status: model.TaskStatusPending, Dependencies: []string{"task-1"}}
				return d
			},
			task:         func(d *model.Document) *model.Task { return d.Tasks["task-2"] },
			expAvailable: false,
		},

		"A task with a missing dependency should not be available": {
			doc: func() *model.Document {
				d := model.NewDocument("test", now)
				d.Tasks["task-2"] = &model.Task{ID: "task-2", Status: model.TaskStatusPending, Dependencies: []string{"task-missing"}}
				return d
			},
			task:         func(d *model.Document) *model.Task { return d.Tasks["task-2"] },
			expAvailable: false,
		},

		"A task with every dependency completed should be available": {
			doc: func() *model.Document {
				d := model.NewDocument("test", now)
				d.Tasks["task-1"] = &model.Task{ID: "task-1", Status: model.TaskStatusCompleted}
				d.Tasks["task-2"] = &model.Task{ID: "task-2", Status: model.TaskStatusCompleted}
				d.Tasks["task-3"] = &model.Task{ID: "task-3", Status: model.TaskStatusPending, Dependencies: []string{"task-1", "task-2"}}
				return d
			},
			task:         func(d *model.Document) *model.Task { return d.Tasks["task-3"] },
			expAvailable: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			d := test.doc()
			got := d.TaskAvailable(test.task(d))
			assert.Equal(t, test.expAvailable, got)
		})
	}
}

func TestDocumentModificationsInWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	d := model.NewDocument("test", now)
	d.Modifications = []model.FileModification{
		{Path: "a.go", Method: "save", ModifiedAt: now.Add(-30 * time.Hour)},
		{Path: "a.go", Method: "save", ModifiedAt: now.Add(-2 * time.Hour)},
		{Path: "a.go", Method: "save", ModifiedAt: now},
		{Path: "a.go", Method: "load", ModifiedAt: now},
		{Path: "b.go", Method: "save", ModifiedAt: now},
	}

	assert.Equal(t, 2, d.ModificationsInWindow("a.go", "save", now, 24*time.Hour))
	assert.Equal(t, 1, d.ModificationsInWindow("a.go", "load", now, 24*time.Hour))
	assert.Equal(t, 0, d.ModificationsInWindow("c.go", "save", now, 24*time.Hour))
}

func TestDocumentSetLocks(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	d := model.NewDocument("test", now)
	d.SetLocks("a.go", []*model.FileLock{{Path: "a.go", AgentID: "agent-1"}})
	assert.Len(t, d.Locks["a.go"], 1)

	d.SetLocks("a.go", nil)
	_, ok := d.Locks["a.go"]
	assert.False(t, ok)
}
