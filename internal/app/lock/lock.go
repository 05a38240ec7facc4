package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/herd/internal/log"
	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage"
)

// modificationWindow is the rolling window the refactor heuristic counts
// modifications over.
const modificationWindow = 24 * time.Hour

// ServiceConfig is the configuration for the lock coordinator service.
type ServiceConfig struct {
	Repository storage.DocumentRepository
	Logger     log.Logger
	// Now is the clock used for expiry checks and timestamps, defaults to
	// time.Now.
	Now func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Lock"})

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Service owns the cooperative file leasing protocol: per (path, agent)
// leases with expiry, method-level conflict detection and the
// modification-driven refactor suggestion heuristic.
type Service struct {
	repo   storage.DocumentRepository
	logger log.Logger
	now    func() time.Time
}

// NewService creates a new lock coordinator service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		now:    cfg.Now,
	}, nil
}

// ConflictError is returned when a lease is held with overlapping methods by
// a different agent. It carries what the caller needs to decide whether to
// wait.
type ConflictError struct {
	HolderID    string
	Reason      string
	HeldMethods []string
	ExpiresIn   time.Duration
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("held by %s (methods %s, expires in %s): %s",
		e.HolderID, strings.Join(e.HeldMethods, ","), e.ExpiresIn.Round(time.Second), model.ErrConflict)
}

func (e *ConflictError) Unwrap() error { return model.ErrConflict }

// AcquireRequest are the parameters for acquiring a lease.
type AcquireRequest struct {
	Path    string
	AgentID string
	// Methods to lease, empty means the whole file.
	Methods []string
	Reason  string
	// Duration of the lease, defaults to the workflow's configured lock
	// timeout.
	Duration time.Duration
	TaskID   string
}

// AcquireResult is the outcome of a successful acquisition.
type AcquireResult struct {
	Lock *model.FileLock
	// Extended is true when the agent already held a lease on the path and
	// it was extended instead of created.
	Extended bool
}

// Acquire takes or extends a lease on a path.
//
// Same-agent re-acquisition extends: new expiry, union of method sets.
// Different agents can hold leases on the same path as long as their method
// sets don't collide and neither leases the whole file; a collision fails
// with a *ConflictError. Expired leases are purged on sight.
func (s *Service) Acquire(ctx context.Context, req AcquireRequest) (*AcquireResult, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	now := s.now()
	path := model.NormalizePath(req.Path)
	methods := req.Methods
	if len(methods) == 0 {
		methods = []string{model.MethodWildcard}
	}
	duration := req.Duration
	if duration <= 0 {
		duration = doc.Config.LockTimeout
	}

	live := doc.LiveLocks(path, now)

	if own := ownedBy(live, req.AgentID); own != nil {
		own.ExpiresAt = now.Add(duration)
		own.MergeMethods(methods)
		doc.SetLocks(path, live)

		if err := s.repo.SaveDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("could not save workflow: %w", err)
		}

		s.logger.Infof("Extended lease on %s for %s", path, req.AgentID)

		return &AcquireResult{Lock: own, Extended: true}, nil
	}

	for _, l := range live {
		if l.ConflictsWith(methods) {
			return nil, &ConflictError{
				HolderID:    l.AgentID,
				Reason:      l.Reason,
				HeldMethods: l.Methods,
				ExpiresIn:   l.ExpiresAt.Sub(now),
			}
		}
	}

	newLock := &model.FileLock{
		Path:       path,
		AgentID:    req.AgentID,
		Methods:    methods,
		Reason:     req.Reason,
		TaskID:     req.TaskID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(duration),
	}
	doc.SetLocks(path, append(live, newLock))

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Acquired lease on %s for %s", path, req.AgentID)

	return &AcquireResult{Lock: newLock}, nil
}

// Modification describes a change recorded when releasing a lease.
type Modification struct {
	Method string
	Lines  string
	Reason string
	TaskID string
}

// Release gives up an agent's lease on a path, optionally recording a
// modification, which feeds the refactor suggestion heuristic.
func (s *Service) Release(ctx context.Context, path, agentID string, mod *Modification) error {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return fmt.Errorf("could not load workflow: %w", err)
	}

	now := s.now()
	path = model.NormalizePath(path)

	live := doc.LiveLocks(path, now)
	if len(live) == 0 {
		// Purge any expired leftovers while we are here.
		if len(doc.Locks[path]) > 0 {
			doc.SetLocks(path, nil)
			if err := s.repo.SaveDocument(ctx, doc); err != nil {
				return fmt.Errorf("could not save workflow: %w", err)
			}
		}
		return fmt.Errorf("no lease on %s: %w", path, model.ErrNotFound)
	}

	own := ownedBy(live, agentID)
	if own == nil {
		return fmt.Errorf("lease on %s is not owned by %s: %w", path, agentID, model.ErrConflict)
	}

	remaining := make([]*model.FileLock, 0, len(live)-1)
	for _, l := range live {
		if l != own {
			remaining = append(remaining, l)
		}
	}
	doc.SetLocks(path, remaining)

	if mod != nil {
		doc.Modifications = append(doc.Modifications, model.FileModification{
			ID:         model.NewModificationID(),
			Path:       path,
			Method:     mod.Method,
			AgentID:    agentID,
			Lines:      mod.Lines,
			Reason:     mod.Reason,
			TaskID:     mod.TaskID,
			ModifiedAt: now,
		})
		s.maybeSuggestRefactor(doc, path, mod.Method, now)
	}

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Released lease on %s by %s", path, agentID)

	return nil
}

// maybeSuggestRefactor raises a refactor suggestion when a (path, method)
// pair crosses the configured modification threshold within the rolling
// window. A pair gets at most one live suggestion and its priority is frozen
// at creation.
func (s *Service) maybeSuggestRefactor(doc *model.Document, path, method string, now time.Time) {
	threshold := doc.Config.AutoRefactorThreshold
	if threshold <= 0 {
		return
	}

	count := doc.ModificationsInWindow(path, method, now, modificationWindow)
	if count < threshold {
		return
	}
	if doc.SuggestionFor(path, method) != nil {
		return
	}

	priority := model.SuggestionPriorityMedium
	if count >= 2*threshold {
		priority = model.SuggestionPriorityHigh
	}

	target := path
	if method != "" {
		target = fmt.Sprintf("%s#%s", path, method)
	}

	doc.RefactorSuggestions = append(doc.RefactorSuggestions, model.RefactorSuggestion{
		ID:        model.NewSuggestionID(),
		Path:      path,
		Method:    method,
		Reason:    fmt.Sprintf("%s was modified %d times in the last 24h", target, count),
		Priority:  priority,
		CreatedBy: model.SuggestionCreatedBySystem,
		CreatedAt: now,
	})

	s.logger.Infof("Raised %s refactor suggestion for %s", priority, target)
}

// Status is the lease state of a path.
type Status struct {
	Locked bool
	// WasExpired is true when the path had leases that were purged because
	// their expiry had passed.
	WasExpired bool
	Locks      []model.FileLock
}

// GetStatus reports the lease state of a path, purging expired leases as a
// side effect.
func (s *Service) GetStatus(ctx context.Context, path string) (*Status, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	now := s.now()
	path = model.NormalizePath(path)

	all := doc.Locks[path]
	live := doc.LiveLocks(path, now)

	if len(live) != len(all) {
		doc.SetLocks(path, live)
		if err := s.repo.SaveDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("could not save workflow: %w", err)
		}
	}

	status := &Status{
		Locked:     len(live) > 0,
		WasExpired: len(live) < len(all),
	}
	for _, l := range live {
		status.Locks = append(status.Locks, *l)
	}

	return status, nil
}

// WaitRequest are the parameters for waiting on a path's leases.
type WaitRequest struct {
	Path         string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Wait polls a path until every lease is gone or the timeout elapses, in
// which case it fails with model.ErrTimeout. On success it returns the
// modifications recorded on the path since the wait began. There is no push
// notification, this is purely time-sliced polling.
func (s *Service) Wait(ctx context.Context, req WaitRequest) ([]model.FileModification, error) {
	if req.PollInterval <= 0 {
		req.PollInterval = time.Second
	}

	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	path := model.NormalizePath(req.Path)
	seen := len(doc.Modifications)
	deadline := s.now().Add(req.Timeout)

	ticker := time.NewTicker(req.PollInterval)
	defer ticker.Stop()

	for {
		status, err := s.GetStatus(ctx, path)
		if err != nil {
			return nil, err
		}
		if !status.Locked {
			return s.modificationsSince(ctx, path, seen)
		}

		if !s.now().Before(deadline) {
			return nil, fmt.Errorf("lease on %s still held after %s: %w", path, req.Timeout, model.ErrTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) modificationsSince(ctx context.Context, path string, seen int) ([]model.FileModification, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	mods := []model.FileModification{}
	if seen > len(doc.Modifications) {
		seen = len(doc.Modifications)
	}
	for _, m := range doc.Modifications[seen:] {
		if m.Path == path {
			mods = append(mods, m)
		}
	}

	return mods, nil
}

// CleanupExpired removes every expired lease in the document and returns how
// many were purged.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not load workflow: %w", err)
	}

	now := s.now()
	removed := 0
	for path := range doc.Locks {
		all := doc.Locks[path]
		live := doc.LiveLocks(path, now)
		removed += len(all) - len(live)
		doc.SetLocks(path, live)
	}

	if removed == 0 {
		return 0, nil
	}

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Purged %d expired leases", removed)

	return removed, nil
}

// ForceRelease removes every lease on a path bypassing ownership checks.
func (s *Service) ForceRelease(ctx context.Context, path string) error {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return fmt.Errorf("could not load workflow: %w", err)
	}

	path = model.NormalizePath(path)
	if len(doc.Locks[path]) == 0 {
		return fmt.Errorf("no lease on %s: %w", path, model.ErrNotFound)
	}

	doc.SetLocks(path, nil)

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Warningf("Force released every lease on %s", path)

	return nil
}

// ListSuggestions returns the live refactor suggestions.
func (s *Service) ListSuggestions(ctx context.Context) ([]model.RefactorSuggestion, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	return append([]model.RefactorSuggestion{}, doc.RefactorSuggestions...), nil
}

// DismissSuggestion removes a refactor suggestion, allowing the heuristic to
// raise a fresh one for the same (path, method) pair later.
func (s *Service) DismissSuggestion(ctx context.Context, id string) error {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return fmt.Errorf("could not load workflow: %w", err)
	}

	idx := -1
	for i, sug := range doc.RefactorSuggestions {
		if sug.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("suggestion %s: %w", id, model.ErrNotFound)
	}

	doc.RefactorSuggestions = append(doc.RefactorSuggestions[:idx], doc.RefactorSuggestions[idx+1:]...)

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Dismissed suggestion %s", id)

	return nil
}

func ownedBy(locks []*model.FileLock, agentID string) *model.FileLock {
	for _, l := range locks {
		if l.AgentID == agentID {
			return l
		}
	}
	return nil
}
