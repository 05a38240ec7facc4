package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	apptask "github.com/slok/herd/internal/app/task"
)

type ProgressCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewProgressCommand returns the progress command.
func NewProgressCommand(rootCmd *RootCommand, app *kingpin.Application) *ProgressCommand {
	c := &ProgressCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("progress", "Show workflow completion progress.")

	return c
}

func (c ProgressCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProgressCommand) Run(ctx context.Context) error {
	repo, close, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return fmt.Errorf("could not create store: %w", err)
	}
	defer close()

	svc, err := apptask.NewService(apptask.ServiceConfig{
		Repository: repo,
		Outputs:    repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task service: %w", err)
	}

	p, err := svc.Progress(ctx)
	if err != nil {
		return fmt.Errorf("could not compute progress: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintProgress(*p)
}
