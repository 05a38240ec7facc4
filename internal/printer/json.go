package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/herd/internal/model"
)

// JSONPrinter prints workflow information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// taskItem represents a task in JSON output.
type taskItem struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Dependents   []string   `json:"dependents,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	OutputRef    string     `json:"output_ref,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func newTaskItem(t model.Task) taskItem {
	item := taskItem{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     t.Priority,
		AssignedTo:   t.AssignedTo,
		Dependencies: t.Dependencies,
		Dependents:   t.Dependents,
		CreatedAt:    t.CreatedAt.UTC(),
	}
	if t.Result != nil {
		completedAt := t.Result.CompletedAt.UTC()
		item.Summary = t.Result.Summary
		item.OutputRef = t.Result.OutputRef
		item.CompletedAt = &completedAt
	}
	return item
}

// agentItem represents an agent in JSON output.
type agentItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	ClaimedTasks []string  `json:"claimed_tasks,omitempty"`
	LastActive   time.Time `json:"last_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func newAgentItem(a model.Agent) agentItem {
	return agentItem{
		ID:           a.ID,
		Name:         a.Name,
		Status:       string(a.Status),
		ClaimedTasks: a.ClaimedTasks,
		LastActive:   a.LastActive.UTC(),
		CreatedAt:    a.CreatedAt.UTC(),
	}
}

// lockStatusOutput represents the lease state of a path.
type lockStatusOutput struct {
	Path       string     `json:"path"`
	Locked     bool       `json:"locked"`
	WasExpired bool       `json:"was_expired,omitempty"`
	Locks      []lockItem `json:"locks,omitempty"`
}

type lockItem struct {
	AgentID    string    `json:"agent_id"`
	Methods    []string  `json:"methods"`
	Reason     string    `json:"reason,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTasks prints tasks in JSON format.
func (j *JSONPrinter) PrintTasks(tasks []model.Task) error {
	items := make([]taskItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, newTaskItem(t))
	}
	return j.encode(items)
}

// PrintTask prints a single task in JSON format.
func (j *JSONPrinter) PrintTask(t model.Task) error {
	return j.encode(newTaskItem(t))
}

// PrintProgress prints workflow progress in JSON format.
func (j *JSONPrinter) PrintProgress(p model.Progress) error {
	byStatus := map[string]int{}
	for status, count := range p.ByStatus {
		byStatus[string(status)] = count
	}
	return j.encode(struct {
		Total      int            `json:"total"`
		ByStatus   map[string]int `json:"by_status"`
		Percentage int            `json:"percentage"`
	}{Total: p.Total, ByStatus: byStatus, Percentage: p.Percentage})
}

// PrintAgents prints agents in JSON format.
func (j *JSONPrinter) PrintAgents(agents []model.Agent) error {
	items := make([]agentItem, 0, len(agents))
	for _, a := range agents {
		items = append(items, newAgentItem(a))
	}
	return j.encode(items)
}

// PrintAgent prints a single agent in JSON format.
func (j *JSONPrinter) PrintAgent(a model.Agent) error {
	return j.encode(newAgentItem(a))
}

// PrintLockStatus prints the lease state of a path in JSON format.
func (j *JSONPrinter) PrintLockStatus(path string, locks []model.FileLock, wasExpired bool) error {
	out := lockStatusOutput{
		Path:       path,
		Locked:     len(locks) > 0,
		WasExpired: wasExpired,
	}
	for _, l := range locks {
		out.Locks = append(out.Locks, lockItem{
			AgentID:    l.AgentID,
			Methods:    l.Methods,
			Reason:     l.Reason,
			TaskID:     l.TaskID,
			AcquiredAt: l.AcquiredAt.UTC(),
			ExpiresAt:  l.ExpiresAt.UTC(),
		})
	}
	return j.encode(out)
}

// PrintModifications prints modification records in JSON format.
func (j *JSONPrinter) PrintModifications(mods []model.FileModification) error {
	type modItem struct {
		ID         string    `json:"id"`
		Path       string    `json:"path"`
		Method     string    `json:"method,omitempty"`
		AgentID    string    `json:"agent_id"`
		Lines      string    `json:"lines,omitempty"`
		Reason     string    `json:"reason,omitempty"`
		TaskID     string    `json:"task_id,omitempty"`
		ModifiedAt time.Time `json:"modified_at"`
	}

	items := make([]modItem, 0, len(mods))
	for _, m := range mods {
		items = append(items, modItem{
			ID:         m.ID,
			Path:       m.Path,
			Method:     m.Method,
			AgentID:    m.AgentID,
			Lines:      m.Lines,
			Reason:     m.Reason,
			TaskID:     m.TaskID,
			ModifiedAt: m.ModifiedAt.UTC(),
		})
	}
	return j.encode(items)
}

// PrintSuggestions prints refactor suggestions in JSON format.
func (j *JSONPrinter) PrintSuggestions(sugs []model.RefactorSuggestion) error {
	type suggestionItem struct {
		ID        string    `json:"id"`
		Path      string    `json:"path"`
		Method    string    `json:"method,omitempty"`
		Reason    string    `json:"reason"`
		Priority  string    `json:"priority"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"`
	}

	items := make([]suggestionItem, 0, len(sugs))
	for _, s := range sugs {
		items = append(items, suggestionItem{
			ID:        s.ID,
			Path:      s.Path,
			Method:    s.Method,
			Reason:    s.Reason,
			Priority:  string(s.Priority),
			CreatedBy: s.CreatedBy,
			CreatedAt: s.CreatedAt.UTC(),
		})
	}
	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}
