package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	apptask "github.com/slok/herd/internal/app/task"
)

type TaskGraphCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewTaskGraphCommand returns the task graph command.
func NewTaskGraphCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskGraphCommand {
	c := &TaskGraphCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("graph", "Render the task dependency graph as mermaid text.")

	return c
}

func (c TaskGraphCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskGraphCommand) Run(ctx context.Context) error {
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

	graph, err := svc.DependencyGraph(ctx)
	if err != nil {
		return fmt.Errorf("could not render graph: %w", err)
	}

	_, err = fmt.Fprint(c.rootCmd.Stdout, graph)
	return err
}
