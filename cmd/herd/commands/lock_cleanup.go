package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	applock "github.com/slok/herd/internal/app/lock"
)

type LockCleanupCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewLockCleanupCommand returns the lock cleanup command.
func NewLockCleanupCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *LockCleanupCommand {
	c := &LockCleanupCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("cleanup", "Purge every expired lease.")

	return c
}

func (c LockCleanupCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockCleanupCommand) Run(ctx context.Context) error {
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

	removed, err := svc.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("could not cleanup leases: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage(fmt.Sprintf("Purged %d expired leases", removed))
}
