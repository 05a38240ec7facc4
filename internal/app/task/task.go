package task

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/slok/herd/internal/log"
	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage"
)

// ServiceConfig is the configuration for the task coordinator service.
type ServiceConfig struct {
	Repository storage.DocumentRepository
	Outputs    storage.OutputRepository
	Logger     log.Logger
	// Now is the clock used for timestamps and ids, defaults to time.Now.
	Now func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Outputs == nil {
		return fmt.Errorf("outputs repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Task"})

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Service owns the task dependency graph and the claim/complete state
// machine. Dependency edges are taken as given: there is no cycle check, a
// dependency cycle just leaves the involved tasks permanently unavailable.
type Service struct {
	repo    storage.DocumentRepository
	outputs storage.OutputRepository
	logger  log.Logger
	now     func() time.Time
}

// NewService creates a new task coordinator service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:    cfg.Repository,
		outputs: cfg.Outputs,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// AddRequest are the parameters for creating a task.
type AddRequest struct {
	Name        string
	Description string
	Priority    int
	// Dependencies are task ids this task waits on. Unknown ids are kept
	// (the task just stays unavailable until they exist and complete).
	Dependencies []string
	Files        []model.FileOperation
	Async        bool
}

// Add creates a new pending task and wires the reverse dependency edges of
// every dependency that already exists.
func (s *Service) Add(ctx context.Context, req AddRequest) (*model.Task, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	now := s.now()
	t := &model.Task{
		ID:           model.NewTaskID(now),
		Name:         req.Name,
		Description:  req.Description,
		Status:       model.TaskStatusPending,
		Priority:     req.Priority,
		Dependencies: append([]string{}, req.Dependencies...),
		Files:        append([]model.FileOperation{}, req.Files...),
		Async:        req.Async,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	doc.Tasks[t.ID] = t
	for _, depID := range req.Dependencies {
		dep, ok := doc.Tasks[depID]
		if !ok {
			continue
		}
		dep.Dependents = append(dep.Dependents, t.ID)
	}

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Added task %s (%s)", t.ID, t.Name)

	return t, nil
}

// ListRequest are the task listing filters.
type ListRequest struct {
	// Status filters by task status when set.
	Status *model.TaskStatus
	// AssignedTo filters by claiming agent when set.
	AssignedTo string
	// OnlyAvailable restricts the list to claimable tasks.
	OnlyAvailable bool
}

// List returns the workflow tasks matching the filters, sorted ascending by
// priority.
func (s *Service) List(ctx context.Context, req ListRequest) ([]model.Task, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	tasks := make([]model.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		if req.Status != nil && t.Status != *req.Status {
			continue
		}
		if req.AssignedTo != "" && t.AssignedTo != req.AssignedTo {
			continue
		}
		if req.OnlyAvailable && !doc.TaskAvailable(t) {
			continue
		}
		tasks = append(tasks, *t)
	}

	// Lower priority first, id breaks ties so the order is stable across
	// calls.
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority < tasks[j].Priority
		}
		return tasks[i].ID < tasks[j].ID
	})

	return tasks, nil
}

// Claim assigns an available task to an agent. The one-shot transition out
// of pending is what guarantees a task has a single claimer at a time.
func (s *Service) Claim(ctx context.Context, taskID, agentID string) (*model.Task, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	t, ok := doc.Tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	agent, ok := doc.Agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, model.ErrNotFound)
	}

	// Three distinct conflict causes so the caller knows what to wait for.
	switch {
	case t.Status != model.TaskStatusPending:
		return nil, fmt.Errorf("task %s is %s: %w", taskID, t.Status, model.ErrConflict)
	case t.AssignedTo != "":
		return nil, fmt.Errorf("task %s is already assigned to %s: %w", taskID, t.AssignedTo, model.ErrConflict)
	case !doc.TaskAvailable(t):
		return nil, fmt.Errorf("task %s has uncompleted dependencies: %w", taskID, model.ErrConflict)
	}

	now := s.now()
	t.Status = model.TaskStatusInProgress
	t.AssignedTo = agentID
	t.UpdatedAt = now
	agent.ClaimedTasks = append(agent.ClaimedTasks, taskID)
	agent.LastActive = now

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Task %s claimed by %s", taskID, agentID)

	return t, nil
}

// CompleteRequest are the parameters for completing a task.
type CompleteRequest struct {
	TaskID  string
	Summary string
	// Output is optional detailed output, stored out of the document.
	Output string
}

// CompleteResult is the outcome of completing a task.
type CompleteResult struct {
	Task *model.Task
	// Unblocked are the dependent task ids that became available because
	// this completion was the last one they were waiting on.
	Unblocked []string
}

// Complete marks a task completed and reports which dependents it unblocked.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	t, ok := doc.Tasks[req.TaskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", req.TaskID, model.ErrNotFound)
	}
	if t.Status == model.TaskStatusCompleted {
		return nil, fmt.Errorf("task %s is already completed: %w", req.TaskID, model.ErrInvalidState)
	}

	outputRef := ""
	if req.Output != "" {
		outputRef, err = s.outputs.WriteTaskOutput(ctx, req.TaskID, req.Output)
		if err != nil {
			return nil, fmt.Errorf("could not store task output: %w", err)
		}
	}

	now := s.now()
	t.Result = &model.TaskResult{
		CompletedAt: now,
		Summary:     req.Summary,
		OutputRef:   outputRef,
	}
	t.Status = model.TaskStatusCompleted
	t.UpdatedAt = now

	if agent, ok := doc.Agents[t.AssignedTo]; ok {
		agent.RemoveClaimedTask(t.ID)
	}

	// Direct recomputation against the mutated document: a dependent with
	// several dependencies only shows up when the last one completes.
	unblocked := []string{}
	for _, depID := range t.Dependents {
		dep, ok := doc.Tasks[depID]
		if ok && doc.TaskAvailable(dep) {
			unblocked = append(unblocked, depID)
		}
	}

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Task %s completed, unblocked %d tasks", req.TaskID, len(unblocked))

	return &CompleteResult{Task: t, Unblocked: unblocked}, nil
}

// Delete removes a task repairing the graph edges and the assignee's claim
// set. Dependents are kept (they will simply never unblock through the
// deleted dependency).
func (s *Service) Delete(ctx context.Context, taskID string) error {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return fmt.Errorf("could not load workflow: %w", err)
	}

	t, ok := doc.Tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	for _, depID := range t.Dependencies {
		if dep, ok := doc.Tasks[depID]; ok {
			dep.Dependents = removeID(dep.Dependents, taskID)
		}
	}
	for _, depID := range t.Dependents {
		if dep, ok := doc.Tasks[depID]; ok {
			dep.Dependencies = removeID(dep.Dependencies, taskID)
		}
	}
	if agent, ok := doc.Agents[t.AssignedTo]; ok {
		agent.RemoveClaimedTask(taskID)
	}
	delete(doc.Tasks, taskID)

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Deleted task %s", taskID)

	return nil
}

// Progress returns task counts per status and the completion percentage.
func (s *Service) Progress(ctx context.Context) (*model.Progress, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	p := &model.Progress{
		Total:    len(doc.Tasks),
		ByStatus: map[model.TaskStatus]int{},
	}
	for _, t := range doc.Tasks {
		p.ByStatus[t.Status]++
	}
	if p.Total > 0 {
		completed := p.ByStatus[model.TaskStatusCompleted]
		p.Percentage = int(math.Round(float64(completed) / float64(p.Total) * 100))
	}

	return p, nil
}

// statusGlyphs annotate graph nodes per task status.
var statusGlyphs = map[model.TaskStatus]string{
	model.TaskStatusPending:    "⏳",
	model.TaskStatusInProgress: "🔄",
	model.TaskStatusCompleted:  "✅",
	model.TaskStatusBlocked:    "🚫",
	model.TaskStatusFailed:     "❌",
}

// DependencyGraph renders the task graph as mermaid text, one node per task
// and one edge per dependency, suitable for external diagram rendering.
func (s *Service) DependencyGraph(ctx context.Context) (string, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return "", fmt.Errorf("could not load workflow: %w", err)
	}

	ids := make([]string, 0, len(doc.Tasks))
	for id := range doc.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, id := range ids {
		t := doc.Tasks[id]
		fmt.Fprintf(&b, "    %s[\"%s %s\"]\n", nodeID(id), statusGlyphs[t.Status], t.Name)
	}
	for _, id := range ids {
		t := doc.Tasks[id]
		for _, depID := range t.Dependencies {
			if _, ok := doc.Tasks[depID]; !ok {
				continue
			}
			fmt.Fprintf(&b, "    %s --> %s\n", nodeID(depID), nodeID(id))
		}
	}

	return b.String(), nil
}

// nodeID makes a task id safe as a mermaid node identifier.
func nodeID(id string) string {
	return strings.ReplaceAll(id, "-", "_")
}

func removeID(ids []string, id string) []string {
	result := ids[:0]
	for _, v := range ids {
		if v != id {
			result = append(result, v)
		}
	}
	return result
}
