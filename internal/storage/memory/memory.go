package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/herd/internal/log"
	"github.com/slok/herd/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
	// Now is the clock used to stamp document updates, defaults to
	// time.Now.
	Now func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Repository is an in-memory implementation of storage.Repository. It is
// used by unit tests and keeps the same snapshot semantics as the durable
// backends: gets and saves deep copy the document so callers always work on
// private snapshots.
type Repository struct {
	doc      *model.Document
	outputs  map[string]string
	identity string
	mu       sync.RWMutex
	logger   log.Logger
	now      func() time.Time
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		outputs: map[string]string{},
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// InitDocument creates the workflow document.
func (r *Repository) InitDocument(ctx context.Context, project string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc != nil {
		return nil, fmt.Errorf("workflow document: %w", model.ErrAlreadyExists)
	}

	r.doc = model.NewDocument(project, r.now())
	r.logger.Debugf("Workflow document initialized for project %q", project)

	return copyDocument(r.doc), nil
}

// GetDocument returns a snapshot of the workflow document.
func (r *Repository) GetDocument(ctx context.Context) (*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.doc == nil {
		return nil, model.ErrNotInitialized
	}

	return copyDocument(r.doc), nil
}

// SaveDocument persists the workflow document stamping a fresh updated
// timestamp.
func (r *Repository) SaveDocument(ctx context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	newDoc := copyDocument(doc)
	newDoc.UpdatedAt = r.now()
	r.doc = newDoc

	return nil
}

// WriteTaskOutput stores a task output and returns its reference.
func (r *Repository) WriteTaskOutput(ctx context.Context, taskID, content string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outputs[taskID] = content

	return "memory://" + taskID, nil
}

// ReadTaskOutput returns a stored task output.
func (r *Repository) ReadTaskOutput(ctx context.Context, taskID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, ok := r.outputs[taskID]
	if !ok {
		return "", fmt.Errorf("output for task %s: %w", taskID, model.ErrNotFound)
	}

	return content, nil
}

// GetLocalAgentID returns the remembered local agent id.
func (r *Repository) GetLocalAgentID(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.identity == "" {
		return "", fmt.Errorf("local agent identity: %w", model.ErrNotFound)
	}

	return r.identity, nil
}

// SaveLocalAgentID remembers the local agent id.
func (r *Repository) SaveLocalAgentID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identity = id

	return nil
}

// ClearLocalAgentID forgets the local agent id.
func (r *Repository) ClearLocalAgentID(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identity = ""

	return nil
}

func copyDocument(doc *model.Document) *model.Document {
	newDoc := *doc

	newDoc.Tasks = make(map[string]*model.Task, len(doc.Tasks))
	for id, t := range doc.Tasks {
		newDoc.Tasks[id] = copyTask(t)
	}

	newDoc.Agents = make(map[string]*model.Agent, len(doc.Agents))
	for id, a := range doc.Agents {
		newAgent := *a
		newAgent.ClaimedTasks = append([]string{}, a.ClaimedTasks...)
		newDoc.Agents[id] = &newAgent
	}

	newDoc.Locks = make(map[string][]*model.FileLock, len(doc.Locks))
	for path, locks := range doc.Locks {
		newLocks := make([]*model.FileLock, 0, len(locks))
		for _, l := range locks {
			newLock := *l
			newLock.Methods = append([]string{}, l.Methods...)
			newLocks = append(newLocks, &newLock)
		}
		newDoc.Locks[path] = newLocks
	}

	newDoc.Modifications = append([]model.FileModification{}, doc.Modifications...)
	newDoc.RefactorSuggestions = append([]model.RefactorSuggestion{}, doc.RefactorSuggestions...)

	return &newDoc
}

func copyTask(t *model.Task) *model.Task {
	newTask := *t
	newTask.Dependencies = append([]string{}, t.Dependencies...)
	newTask.Dependents = append([]string{}, t.Dependents...)
	newTask.Files = append([]model.FileOperation{}, t.Files...)
	if t.Result != nil {
		result := *t.Result
		newTask.Result = &result
	}
	return &newTask
}
