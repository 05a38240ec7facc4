package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	apptask "github.com/slok/herd/internal/app/task"
)

type TaskDeleteCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewTaskDeleteCommand returns the task delete command.
func NewTaskDeleteCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskDeleteCommand {
	c := &TaskDeleteCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("delete", "Delete a task repairing graph edges.")
	c.Cmd.Arg("task-id", "Id of the task to delete.").Required().StringVar(&c.taskID)

	return c
}

func (c TaskDeleteCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskDeleteCommand) Run(ctx context.Context) error {
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

	if err := svc.Delete(ctx, c.taskID); err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage(fmt.Sprintf("Task %s deleted", c.taskID))
}
