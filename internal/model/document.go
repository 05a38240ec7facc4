package model

import (
	"time"
)

// DocumentVersion is the version stamped on newly created workflow
// documents.
const DocumentVersion = "1.0"

// Default configuration values for new workflow documents.
const (
	DefaultLockTimeout           = 30 * time.Minute
	DefaultMaxParallelAgents     = 4
	DefaultAutoRefactorThreshold = 3
	DefaultInactiveTimeout       = 2 * time.Hour
)

// DocumentConfig is the per-workflow tunable configuration.
type DocumentConfig struct {
	// LockTimeout is the default lease duration when a request doesn't set
	// one.
	LockTimeout time.Duration
	// MaxParallelAgents is advisory, the coordinator doesn't enforce it.
	MaxParallelAgents int
	// AutoRefactorThreshold is the trailing-24h modification count per
	// (path, method) that raises a refactor suggestion.
	AutoRefactorThreshold int
	// InactiveTimeout demotes active agents to inactive at read time.
	InactiveTimeout time.Duration
}

// Document is the root aggregate shared by every agent: all coordination
// happens by loading it, mutating a private copy and saving it back.
type Document struct {
	Version   string
	Project   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Config    DocumentConfig

	Tasks  map[string]*Task
	Agents map[string]*Agent
	// Locks holds the live leases per normalized path. Several agents can
	// hold method-disjoint leases on the same path at once.
	Locks map[string][]*FileLock

	Modifications       []FileModification
	RefactorSuggestions []RefactorSuggestion
}

// NewDocument creates an empty workflow document for a project with default
// configuration.
func NewDocument(project string, now time.Time) *Document {
	return &Document{
		Version:   DocumentVersion,
		Project:   project,
		CreatedAt: now,
		UpdatedAt: now,
		Config: DocumentConfig{
			LockTimeout:           DefaultLockTimeout,
			MaxParallelAgents:     DefaultMaxParallelAgents,
			AutoRefactorThreshold: DefaultAutoRefactorThreshold,
			InactiveTimeout:       DefaultInactiveTimeout,
		},
		Tasks:  map[string]*Task{},
		Agents: map[string]*Agent{},
		Locks:  map[string][]*FileLock{},
	}
}

// TaskAvailable reports whether a task can be claimed: pending, unassigned
// and every dependency exists and is completed. A missing dependency counts
// as unmet.
func (d *Document) TaskAvailable(t *Task) bool {
	if t.Status != TaskStatusPending || t.AssignedTo != "" {
		return false
	}

	for _, depID := range t.Dependencies {
		dep, ok := d.Tasks[depID]
		if !ok || dep.Status != TaskStatusCompleted {
			return false
		}
	}

	return true
}

// LiveLocks returns the unexpired leases on a normalized path.
func (d *Document) LiveLocks(path string, now time.Time) []*FileLock {
	live := make([]*FileLock, 0, len(d.Locks[path]))
	for _, l := range d.Locks[path] {
		if !l.Expired(now) {
			live = append(live, l)
		}
	}
	return live
}

// LockOwnedBy returns the lease an agent holds on a normalized path, nil if
// none.
func (d *Document) LockOwnedBy(path, agentID string) *FileLock {
	for _, l := range d.Locks[path] {
		if l.AgentID == agentID {
			return l
		}
	}
	return nil
}

// SetLocks replaces the leases of a path, dropping the path key when the
// list is empty so the document doesn't accumulate empty entries.
func (d *Document) SetLocks(path string, locks []*FileLock) {
	if len(locks) == 0 {
		delete(d.Locks, path)
		return
	}
	d.Locks[path] = locks
}

// ModificationsInWindow counts the recorded modifications to a
// (path, method) pair within the window ending at now.
func (d *Document) ModificationsInWindow(path, method string, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	count := 0
	for _, m := range d.Modifications {
		if m.Path != path || m.Method != method {
			continue
		}
		if m.ModifiedAt.Before(cutoff) {
			continue
		}
		count++
	}
	return count
}

// SuggestionFor returns the live refactor suggestion for a (path, method)
// pair, nil if none exists.
func (d *Document) SuggestionFor(path, method string) *RefactorSuggestion {
	for i := range d.RefactorSuggestions {
		s := &d.RefactorSuggestions[i]
		if s.Path == path && s.Method == method {
			return s
		}
	}
	return nil
}
