package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/slok/herd/internal/log"
	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage"
)

// ServiceConfig is the configuration for the agent registry service.
type ServiceConfig struct {
	Repository storage.DocumentRepository
	Identity   storage.IdentityRepository
	Logger     log.Logger
	// Now is the clock used for liveness and timestamps, defaults to
	// time.Now.
	Now func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Identity == nil {
		return fmt.Errorf("identity repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Agent"})

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Service owns agent identity, liveness classification and takeover of
// another agent's claims and leases.
type Service struct {
	repo     storage.DocumentRepository
	identity storage.IdentityRepository
	logger   log.Logger
	now      func() time.Time
}

// NewService creates a new agent registry service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:     cfg.Repository,
		identity: cfg.Identity,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// GetOrCreateCurrent resolves the local agent identity. A remembered agent
// that still exists is refreshed and forced active; otherwise a new agent is
// minted and remembered.
func (s *Service) GetOrCreateCurrent(ctx context.Context, name string) (*model.Agent, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	now := s.now()

	id, err := s.identity.GetLocalAgentID(ctx)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not resolve local identity: %w", err)
	}
	if err == nil {
		if a, ok := doc.Agents[id]; ok {
			a.LastActive = now
			a.Status = model.AgentStatusActive
			if err := s.repo.SaveDocument(ctx, doc); err != nil {
				return nil, fmt.Errorf("could not save workflow: %w", err)
			}
			return a, nil
		}
		// Remembered id points to a deleted agent, mint a new one.
	}

	newID := model.NewAgentID(now)
	if name == "" {
		name = newID
	}
	a := &model.Agent{
		ID:           newID,
		Name:         name,
		ClaimedTasks: []string{},
		SessionToken: model.NewSessionToken(),
		Status:       model.AgentStatusActive,
		LastActive:   now,
		CreatedAt:    now,
	}
	doc.Agents[newID] = a

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not save workflow: %w", err)
	}
	if err := s.identity.SaveLocalAgentID(ctx, newID); err != nil {
		return nil, fmt.Errorf("could not remember local identity: %w", err)
	}

	s.logger.Infof("Registered agent %s (%s)", newID, name)

	return a, nil
}

// ListRequest are the agent listing options.
type ListRequest struct {
	IncludeTerminated bool
}

// List returns the registered agents sorted by most recent activity.
// Active agents idle past the configured inactivity window are demoted to
// inactive before listing; the demotion is persisted.
func (s *Service) List(ctx context.Context, req ListRequest) ([]model.Agent, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load workflow: %w", err)
	}

	now := s.now()
	demoted := 0
	for _, a := range doc.Agents {
		if a.Status == model.AgentStatusActive && a.IdleSince(now, doc.Config.InactiveTimeout) {
			a.Status = model.AgentStatusInactive
			demoted++
		}
	}
	if demoted > 0 {
		if err := s.repo.SaveDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("could not save workflow: %w", err)
		}
		s.logger.Debugf("Demoted %d idle agents to inactive", demoted)
	}

	agents := make([]model.Agent, 0, len(doc.Agents))
	for _, a := range doc.Agents {
		if !req.IncludeTerminated && a.Status == model.AgentStatusTerminated {
			continue
		}
		agents = append(agents, *a)
	}

	sort.SliceStable(agents, func(i, j int) bool {
		if !agents[i].LastActive.Equal(agents[j].LastActive) {
			return agents[i].LastActive.After(agents[j].LastActive)
		}
		return agents[i].ID < agents[j].ID
	})

	return agents, nil
}

// Rename changes the current agent's display name.
func (s *Service) Rename(ctx context.Context, name string) (*model.Agent, error) {
	doc, a, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	a.Name = name
	a.LastActive = s.now()

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not save workflow: %w", err)
	}

	return a, nil
}

// Deactivate marks the current agent inactive and forgets the local
// identity.
func (s *Service) Deactivate(ctx context.Context) error {
	doc, a, err := s.current(ctx)
	if err != nil {
		return err
	}

	a.Status = model.AgentStatusInactive

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("could not save workflow: %w", err)
	}
	if err := s.identity.ClearLocalAgentID(ctx); err != nil {
		return fmt.Errorf("could not forget local identity: %w", err)
	}

	s.logger.Infof("Deactivated agent %s", a.ID)

	return nil
}

// Touch refreshes the current agent's liveness.
func (s *Service) Touch(ctx context.Context) error {
	doc, a, err := s.current(ctx)
	if err != nil {
		return err
	}

	a.LastActive = s.now()
	if a.Status == model.AgentStatusInactive {
		a.Status = model.AgentStatusActive
	}

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("could not save workflow: %w", err)
	}

	return nil
}

// Takeover transfers every task and lease of the target agent to the
// current one and terminates the target. It returns the inherited task ids.
func (s *Service) Takeover(ctx context.Context, targetID string) ([]string, error) {
	doc, current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	target, ok := doc.Agents[targetID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", targetID, model.ErrNotFound)
	}
	if target.ID == current.ID {
		return nil, fmt.Errorf("cannot take over yourself: %w", model.ErrInvalidState)
	}
	if target.Status == model.AgentStatusTerminated {
		return nil, fmt.Errorf("agent %s is already terminated: %w", targetID, model.ErrInvalidState)
	}

	now := s.now()

	// Reassign tasks. The document is the source of truth, the target's
	// claim set is just its index.
	inherited := []string{}
	for _, t := range doc.Tasks {
		if t.AssignedTo != targetID {
			continue
		}
		t.AssignedTo = current.ID
		t.UpdatedAt = now
		inherited = append(inherited, t.ID)
	}
	sort.Strings(inherited)
	for _, id := range inherited {
		if !contains(current.ClaimedTasks, id) {
			current.ClaimedTasks = append(current.ClaimedTasks, id)
		}
	}

	// Reassign leases. If the current agent already holds a lease on the
	// path both collapse into one with the union of methods.
	for path, locks := range doc.Locks {
		remaining := make([]*model.FileLock, 0, len(locks))
		var inheritedLock *model.FileLock
		var ownLock *model.FileLock
		for _, l := range locks {
			switch l.AgentID {
			case targetID:
				inheritedLock = l
			case current.ID:
				ownLock = l
				remaining = append(remaining, l)
			default:
				remaining = append(remaining, l)
			}
		}
		if inheritedLock == nil {
			continue
		}
		if ownLock != nil {
			ownLock.MergeMethods(inheritedLock.Methods)
			if inheritedLock.ExpiresAt.After(ownLock.ExpiresAt) {
				ownLock.ExpiresAt = inheritedLock.ExpiresAt
			}
		} else {
			inheritedLock.AgentID = current.ID
			remaining = append(remaining, inheritedLock)
		}
		doc.SetLocks(path, remaining)
	}

	target.ClaimedTasks = []string{}
	target.Status = model.AgentStatusTerminated
	current.LastActive = now

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Agent %s took over %s (%d tasks inherited)", current.ID, targetID, len(inherited))

	return inherited, nil
}

// CleanupTerminated permanently deletes terminated agents idle for longer
// than the given duration and returns how many were removed.
func (s *Service) CleanupTerminated(ctx context.Context, olderThan time.Duration) (int, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not load workflow: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for id, a := range doc.Agents {
		if a.Status == model.AgentStatusTerminated && a.LastActive.Before(cutoff) {
			delete(doc.Agents, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("could not save workflow: %w", err)
	}

	s.logger.Infof("Removed %d terminated agents", removed)

	return removed, nil
}

// current resolves the local identity against the document. Mutating
// operations require it to exist.
func (s *Service) current(ctx context.Context) (*model.Document, *model.Agent, error) {
	doc, err := s.repo.GetDocument(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load workflow: %w", err)
	}

	id, err := s.identity.GetLocalAgentID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("no local agent identity, register first: %w", err)
	}

	a, ok := doc.Agents[id]
	if !ok {
		return nil, nil, fmt.Errorf("agent %s: %w", id, model.ErrNotFound)
	}

	return doc, a, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
