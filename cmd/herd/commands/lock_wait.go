package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	applock "github.com/slok/herd/internal/app/lock"
)

type LockWaitCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	path         string
	timeout      time.Duration
	pollInterval time.Duration
}

// NewLockWaitCommand returns the lock wait command.
func NewLockWaitCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *LockWaitCommand {
	c := &LockWaitCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("wait", "Block until every lease on a path is released.")
	c.Cmd.Arg("path", "Path to wait on.").Required().StringVar(&c.path)
	c.Cmd.Flag("timeout", "How long to wait before giving up.").Short('t').Default("5m").DurationVar(&c.timeout)
	c.Cmd.Flag("poll-interval", "How often to re-check the lease state.").Default("1s").DurationVar(&c.pollInterval)

	return c
}

func (c LockWaitCommand) Name() string { return c.Cmd.FullCommand() }

func (c LockWaitCommand) Run(ctx context.Context) error {
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

	mods, err := svc.Wait(ctx, applock.WaitRequest{
		Path:         c.path,
		Timeout:      c.timeout,
		PollInterval: c.pollInterval,
	})
	if err != nil {
		return fmt.Errorf("could not wait for lease: %w", err)
	}

	p := c.rootCmd.NewPrinter()
	if len(mods) == 0 {
		return p.PrintMessage(fmt.Sprintf("Path %s is free", c.path))
	}
	return p.PrintModifications(mods)
}
