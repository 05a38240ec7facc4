package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	applock "github.com/slok/herd/internal/app/lock"
)

type LockForceReleaseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path string
}

// NewLockForceReleaseCommand returns the lock force-release command.
func NewLockForceReleaseCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *LockForceReleaseCommand {
	c := &LockForceReleaseCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("force-release", "Remove every lease on a path bypassing ownership.")
	c.Cmd.Arg("path", "Path to release.").Required().StringVar(&c.path)

	return c
}

func (c LockForceReleaseCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockForceReleaseCommand) Run(ctx context.Context) error {
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

	if err := svc.ForceRelease(ctx, c.path); err != nil {
		return fmt.Errorf("could not force release: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage(fmt.Sprintf("Every lease on %s released", c.path))
}
