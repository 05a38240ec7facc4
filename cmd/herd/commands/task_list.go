package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	apptask "github.com/slok/herd/internal/app/task"
	"github.com/slok/herd/internal/model"
)

type TaskListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	status     string
	assignedTo string
	available  bool
}

// NewTaskListCommand returns the task list command.
func NewTaskListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskListCommand {
	c := &TaskListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List workflow tasks.")
	c.Cmd.Flag("status", "Filter by status.").EnumVar(&c.status,
		string(model.TaskStatusPending),
		string(model.TaskStatusInProgress),
		string(model.TaskStatusCompleted),
		string(model.TaskStatusBlocked),
		string(model.TaskStatusFailed))
	c.Cmd.Flag("agent", "Filter by claiming agent id.").StringVar(&c.assignedTo)
	c.Cmd.Flag("available", "Only show claimable tasks.").BoolVar(&c.available)

	return c
}

func (c TaskListCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskListCommand) Run(ctx context.Context) error {
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

	req := apptask.ListRequest{
		AssignedTo:    c.assignedTo,
		OnlyAvailable: c.available,
	}
	if c.status != "" {
		status := model.TaskStatus(c.status)
		req.Status = &status
	}

	tasks, err := svc.List(ctx, req)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintTasks(tasks)
}
