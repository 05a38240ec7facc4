package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
	apptask "github.com/slok/herd/internal/app/task"
)

type TaskClaimCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewTaskClaimCommand returns the task claim command.
func NewTaskClaimCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskClaimCommand {
	c := &TaskClaimCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("claim", "Claim an available task as the current agent.")
	c.Cmd.Arg("task-id", "Id of the task to claim.").Required().StringVar(&c.taskID)

	return c
}

func (c TaskClaimCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskClaimCommand) Run(ctx context.Context) error {
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

	taskSvc, err := apptask.NewService(apptask.ServiceConfig{
		Repository: repo,
		Outputs:    repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task service: %w", err)
	}

	t, err := taskSvc.Claim(ctx, c.taskID, current.ID)
	if err != nil {
		return fmt.Errorf("could not claim task: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintTask(*t)
}
