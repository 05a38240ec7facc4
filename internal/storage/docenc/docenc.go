// Package docenc serializes the workflow document to its on-disk YAML
// shape. Field names and nesting are a compatibility surface for documents
// shared between agents, keep them stable.
package docenc

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/herd/internal/model"
)

// Encode serializes a workflow document as YAML.
func Encode(doc *model.Document) ([]byte, error) {
	data, err := yaml.Marshal(fromModel(doc))
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	return data, nil
}

// Decode deserializes a YAML workflow document.
func Decode(data []byte) (*model.Document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document YAML: %w", err)
	}
	return doc.toModel(), nil
}

// document is the YAML structure of the workflow document. Durations are
// stored as integer seconds.
type document struct {
	Version   string    `yaml:"version"`
	Project   string    `yaml:"project"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Config    config    `yaml:"config"`

	Agents map[string]agent      `yaml:"agents"`
	Tasks  map[string]task       `yaml:"tasks"`
	Locks  map[string][]fileLock `yaml:"locks"`

	Modifications       []fileModification   `yaml:"modifications"`
	RefactorSuggestions []refactorSuggestion `yaml:"refactor_suggestions"`
}

type config struct {
	LockTimeoutSeconds     int `yaml:"lock_timeout"`
	MaxParallelAgents      int `yaml:"max_parallel_agents"`
	AutoRefactorThreshold  int `yaml:"auto_refactor_threshold"`
	InactiveTimeoutSeconds int `yaml:"inactive_timeout"`
}

type task struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	Description  string          `yaml:"description,omitempty"`
	Status       string          `yaml:"status"`
	Priority     int             `yaml:"priority"`
	AssignedTo   string          `yaml:"assigned_to,omitempty"`
	Dependencies []string        `yaml:"dependencies,omitempty"`
	Dependents   []string        `yaml:"dependents,omitempty"`
	Files        []fileOperation `yaml:"files,omitempty"`
	Async        bool            `yaml:"async,omitempty"`
	Result       *taskResult     `yaml:"result,omitempty"`
	CreatedAt    time.Time       `yaml:"created_at"`
	UpdatedAt    time.Time       `yaml:"updated_at"`
}

type fileOperation struct {
	Path      string   `yaml:"path"`
	Operation string   `yaml:"operation"`
	Methods   []string `yaml:"methods,omitempty"`
}

type taskResult struct {
	CompletedAt time.Time `yaml:"completed_at"`
	Summary     string    `yaml:"summary"`
	OutputRef   string    `yaml:"output_ref,omitempty"`
}

type agent struct {
	ID           string    `yaml:"id"`
	Name         string    `yaml:"name"`
	ClaimedTasks []string  `yaml:"claimed_tasks,omitempty"`
	SessionToken string    `yaml:"session_token"`
	Status       string    `yaml:"status"`
	LastActive   time.Time `yaml:"last_active"`
	CreatedAt    time.Time `yaml:"created_at"`
}

type fileLock struct {
	AgentID    string    `yaml:"agent_id"`
	Methods    []string  `yaml:"methods"`
	Reason     string    `yaml:"reason,omitempty"`
	TaskID     string    `yaml:"task_id,omitempty"`
	AcquiredAt time.Time `yaml:"acquired_at"`
	ExpiresAt  time.Time `yaml:"expires_at"`
}

type fileModification struct {
	ID         string    `yaml:"id"`
	Path       string    `yaml:"path"`
	Method     string    `yaml:"method,omitempty"`
	AgentID    string    `yaml:"agent_id"`
	Lines      string    `yaml:"lines,omitempty"`
	Reason     string    `yaml:"reason,omitempty"`
	TaskID     string    `yaml:"task_id,omitempty"`
	ModifiedAt time.Time `yaml:"modified_at"`
}

type refactorSuggestion struct {
	ID        string    `yaml:"id"`
	Path      string    `yaml:"path"`
	Method    string    `yaml:"method,omitempty"`
	Reason    string    `yaml:"reason"`
	Priority  string    `yaml:"priority"`
	CreatedBy string    `yaml:"created_by"`
	CreatedAt time.Time `yaml:"created_at"`
}

func fromModel(m *model.Document) document {
	doc := document{
		Version:   m.Version,
		Project:   m.Project,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		Config: config{
			LockTimeoutSeconds:     int(m.Config.LockTimeout.Seconds()),
			MaxParallelAgents:      m.Config.MaxParallelAgents,
			AutoRefactorThreshold:  m.Config.AutoRefactorThreshold,
			InactiveTimeoutSeconds: int(m.Config.InactiveTimeout.Seconds()),
		},
		Agents: map[string]agent{},
		Tasks:  map[string]task{},
		Locks:  map[string][]fileLock{},
	}

	for id, t := range m.Tasks {
		doc.Tasks[id] = taskFromModel(t)
	}

	for id, a := range m.Agents {
		doc.Agents[id] = agent{
			ID:           a.ID,
			Name:         a.Name,
			ClaimedTasks: a.ClaimedTasks,
			SessionToken: a.SessionToken,
			Status:       string(a.Status),
			LastActive:   a.LastActive.UTC(),
			CreatedAt:    a.CreatedAt.UTC(),
		}
	}

	for path, locks := range m.Locks {
		ls := make([]fileLock, 0, len(locks))
		for _, l := range locks {
			ls = append(ls, fileLock{
				AgentID:    l.AgentID,
				Methods:    l.Methods,
				Reason:     l.Reason,
				TaskID:     l.TaskID,
				AcquiredAt: l.AcquiredAt.UTC(),
				ExpiresAt:  l.ExpiresAt.UTC(),
			})
		}
		doc.Locks[path] = ls
	}

	for _, mod := range m.Modifications {
		doc.Modifications = append(doc.Modifications, fileModification{
			ID:         mod.ID,
			Path:       mod.Path,
			Method:     mod.Method,
			AgentID:    mod.AgentID,
			Lines:      mod.Lines,
			Reason:     mod.Reason,
			TaskID:     mod.TaskID,
			ModifiedAt: mod.ModifiedAt.UTC(),
		})
	}

	for _, s := range m.RefactorSuggestions {
		doc.RefactorSuggestions = append(doc.RefactorSuggestions, refactorSuggestion{
			ID:        s.ID,
			Path:      s.Path,
			Method:    s.Method,
			Reason:    s.Reason,
			Priority:  string(s.Priority),
			CreatedBy: s.CreatedBy,
			CreatedAt: s.CreatedAt.UTC(),
		})
	}

	return doc
}

func taskFromModel(t *model.Task) task {
	newTask := task{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     t.Priority,
		AssignedTo:   t.AssignedTo,
		Dependencies: t.Dependencies,
		Dependents:   t.Dependents,
		Async:        t.Async,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}

	for _, f := range t.Files {
		newTask.Files = append(newTask.Files, fileOperation{
			Path:      f.Path,
			Operation: string(f.Operation),
			Methods:   f.Methods,
		})
	}

	if t.Result != nil {
		newTask.Result = &taskResult{
			CompletedAt: t.Result.CompletedAt.UTC(),
			Summary:     t.Result.Summary,
			OutputRef:   t.Result.OutputRef,
		}
	}

	return newTask
}

func (d document) toModel() *model.Document {
	doc := &model.Document{
		Version:   d.Version,
		Project:   d.Project,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Config: model.DocumentConfig{
			LockTimeout:           time.Duration(d.Config.LockTimeoutSeconds) * time.Second,
			MaxParallelAgents:     d.Config.MaxParallelAgents,
			AutoRefactorThreshold: d.Config.AutoRefactorThreshold,
			InactiveTimeout:       time.Duration(d.Config.InactiveTimeoutSeconds) * time.Second,
		},
		Tasks:  map[string]*model.Task{},
		Agents: map[string]*model.Agent{},
		Locks:  map[string][]*model.FileLock{},
	}

	for id, t := range d.Tasks {
		doc.Tasks[id] = t.toModel()
	}

	for id, a := range d.Agents {
		doc.Agents[id] = &model.Agent{
			ID:           a.ID,
			Name:         a.Name,
			ClaimedTasks: a.ClaimedTasks,
			SessionToken: a.SessionToken,
			Status:       model.AgentStatus(a.Status),
			LastActive:   a.LastActive,
			CreatedAt:    a.CreatedAt,
		}
	}

	for path, locks := range d.Locks {
		ls := make([]*model.FileLock, 0, len(locks))
		for _, l := range locks {
			ls = append(ls, &model.FileLock{
				Path:       path,
				AgentID:    l.AgentID,
				Methods:    l.Methods,
				Reason:     l.Reason,
				TaskID:     l.TaskID,
				AcquiredAt: l.AcquiredAt,
				ExpiresAt:  l.ExpiresAt,
			})
		}
		doc.Locks[path] = ls
	}

	for _, mod := range d.Modifications {
		doc.Modifications = append(doc.Modifications, model.FileModification{
			ID:         mod.ID,
			Path:       mod.Path,
			Method:     mod.Method,
			AgentID:    mod.AgentID,
			Lines:      mod.Lines,
			Reason:     mod.Reason,
			TaskID:     mod.TaskID,
			ModifiedAt: mod.ModifiedAt,
		})
	}

	for _, s := range d.RefactorSuggestions {
		doc.RefactorSuggestions = append(doc.RefactorSuggestions, model.RefactorSuggestion{
			ID:        s.ID,
			Path:      s.Path,
			Method:    s.Method,
			Reason:    s.Reason,
			Priority:  model.SuggestionPriority(s.Priority),
			CreatedBy: s.CreatedBy,
			CreatedAt: s.CreatedAt,
		})
	}

	return doc
}

func (t task) toModel() *model.Task {
	newTask := &model.Task{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Status:       model.TaskStatus(t.Status),
		Priority:     t.Priority,
		AssignedTo:   t.AssignedTo,
		Dependencies: t.Dependencies,
		Dependents:   t.Dependents,
		Async:        t.Async,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}

	for _, f := range t.Files {
		newTask.Files = append(newTask.Files, model.FileOperation{
			Path:      f.Path,
			Operation: model.FileOperationKind(f.Operation),
			Methods:   f.Methods,
		})
	}

	if t.Result != nil {
		newTask.Result = &model.TaskResult{
			CompletedAt: t.Result.CompletedAt,
			Summary:     t.Result.Summary,
			OutputRef:   t.Result.OutputRef,
		}
	}

	return newTask
}
