package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
	applock "github.com/slok/herd/internal/app/lock"
)

type LockAcquireCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path     string
	methods  []string
	reason   string
	duration time.Duration
	taskID   string
}

// NewLockAcquireCommand returns the lock acquire command.
func NewLockAcquireCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *LockAcquireCommand {
	c := &LockAcquireCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("acquire", "Acquire or extend a lease on a path.")
	c.Cmd.Arg("path", "Path to lease.").Required().StringVar(&c.path)
	c.Cmd.Flag("method", "Method to lease, omit for the whole file (repeatable).").Short('m').StringsVar(&c.methods)
	c.Cmd.Flag("reason", "Why the lease is needed.").Short('r').StringVar(&c.reason)
	c.Cmd.Flag("duration", "Lease duration, defaults to the workflow's lock timeout.").DurationVar(&c.duration)
	c.Cmd.Flag("task", "Task id the lease belongs to.").StringVar(&c.taskID)

	return c
}

func (c LockAcquireCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockAcquireCommand) Run(ctx context.Context) error {
	repo, close, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return fmt.Errorf("could not create store: %w", err)
	}
	defer close()

	agentSvc, err := appagent.NewService(appagent.ServiceConfig{
		Repository: repo,
		Identity:   repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create agent service: %w", err)
	}

	current, err := agentSvc.GetOrCreateCurrent(ctx, "")
	if err != nil {
		return fmt.Errorf("could not resolve current agent: %w", err)
	}

	lockSvc, err := applock.NewService(applock.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create lock service: %w", err)
	}

	result, err := lockSvc.Acquire(ctx, applock.AcquireRequest{
		Path:     c.path,
		AgentID:  current.ID,
		Methods:  c.methods,
		Reason:   c.reason,
		Duration: c.duration,
		TaskID:   c.taskID,
	})
	if err != nil {
		var conflictErr *applock.ConflictError
		if errors.As(err, &conflictErr) {
			return fmt.Errorf("lease on %s is %w", c.path, conflictErr)
		}
		return fmt.Errorf("could not acquire lease: %w", err)
	}

	p := c.rootCmd.NewPrinter()
	if result.Extended {
		return p.PrintMessage(fmt.Sprintf("Lease on %s extended until %s", result.Lock.Path, result.Lock.ExpiresAt.Format(time.RFC3339)))
	}
	return p.PrintMessage(fmt.Sprintf("Lease on %s acquired until %s", result.Lock.Path, result.Lock.ExpiresAt.Format(time.RFC3339)))
}
