package model

import (
	"fmt"
	"time"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusFailed     TaskStatus = "failed"
)

// FileOperationKind is the kind of change a task plans for a file.
type FileOperationKind string

const (
	FileOperationCreate FileOperationKind = "create"
	FileOperationModify FileOperationKind = "modify"
	FileOperationDelete FileOperationKind = "delete"
)

// FileOperation describes a file a task intends to touch.
type FileOperation struct {
	Path      string
	Operation FileOperationKind
	Methods   []string
}

// TaskResult carries the outcome of a completed task.
type TaskResult struct {
	CompletedAt time.Time
	Summary     string
	// OutputRef references out-of-document detailed output, empty if none
	// was recorded.
	OutputRef string
}

// Task represents a unit of work in the shared workflow.
type Task struct {
	ID          string
	Name        string
	Description string
	Status      TaskStatus
	// Priority orders work, lower is more urgent.
	Priority int
	// AssignedTo is the id of the claiming agent, empty while unassigned.
	AssignedTo string
	// Dependencies are the task ids this task waits on.
	Dependencies []string
	// Dependents are the reverse edges of Dependencies, maintained
	// incrementally so unblocking lookups don't scan the whole graph.
	Dependents []string
	Files      []FileOperation
	Async      bool
	Result     *TaskResult
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Progress aggregates task counts per status.
type Progress struct {
	Total      int
	ByStatus   map[TaskStatus]int
	Percentage int
}

// Validate validates a new task.
func (t *Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required: %w", ErrNotValid)
	}
	return nil
}
