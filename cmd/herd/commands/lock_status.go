package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	applock "github.com/slok/herd/internal/app/lock"
	"github.com/slok/herd/internal/model"
)

type LockStatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path string
}

// NewLockStatusCommand returns the lock status command.
func NewLockStatusCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *LockStatusCommand {
	c := &LockStatusCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("status", "Show the lease state of a path.")
	c.Cmd.Arg("path", "Path to inspect.").Required().StringVar(&c.path)

	return c
}

func (c LockStatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockStatusCommand) Run(ctx context.Context) error {
	repo, close, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return fmt.Errorf("could not create store: %w", err)
	}
	defer close()

	svc, err := applock.NewService(applock.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create lock service: %w", err)
	}

	status, err := svc.GetStatus(ctx, c.path)
	if err != nil {
		return fmt.Errorf("could not get lease status: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintLockStatus(model.NormalizePath(c.path), status.Locks, status.WasExpired)
}
