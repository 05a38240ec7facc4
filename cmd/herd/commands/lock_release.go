package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
	applock "github.com/slok/herd/internal/app/lock"
)

type LockReleaseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path     string
	modified bool
	method   string
	lines    string
	reason   string
	taskID   string
}

// NewLockReleaseCommand returns the lock release command.
func NewLockReleaseCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *LockReleaseCommand {
	c := &LockReleaseCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("release", "Release the current agent's lease on a path.")
	c.Cmd.Arg("path", "Path of the lease.").Required().StringVar(&c.path)
	c.Cmd.Flag("modified", "Record a modification made under the lease.").BoolVar(&c.modified)
	c.Cmd.Flag("method", "Modified method.").Short('m').StringVar(&c.method)
	c.Cmd.Flag("lines", "Modified line range description.").StringVar(&c.lines)
	c.Cmd.Flag("reason", "Why the change was made.").Short('r').StringVar(&c.reason)
	c.Cmd.Flag("task", "Task id the change belongs to.").StringVar(&c.taskID)

	return c
}

func (c LockReleaseCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockReleaseCommand) Run(ctx context.Context) error {
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

	var mod *applock.Modification
	if c.modified {
		mod = &applock.Modification{
			Method: c.method,
			Lines:  c.lines,
			Reason: c.reason,
			TaskID: c.taskID,
		}
	}

	if err := lockSvc.Release(ctx, c.path, current.ID, mod); err != nil {
		return fmt.Errorf("could not release lease: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage(fmt.Sprintf("Lease on %s released", c.path))
}
