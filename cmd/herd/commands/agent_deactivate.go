package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
)

type AgentDeactivateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewAgentDeactivateCommand returns the agent deactivate command.
func NewAgentDeactivateCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentDeactivateCommand {
	c := &AgentDeactivateCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("deactivate", "Mark the current agent inactive and forget the local identity.")

	return c
}

func (c AgentDeactivateCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentDeactivateCommand) Run(ctx context.Context) error {
	repo, close, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return fmt.Errorf("could not create store: %w", err)
	}
	defer close()

	svc, err := appagent.NewService(appagent.ServiceConfig{
		Repository: repo,
		Identity:   repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create agent service: %w", err)
	}

	if err := svc.Deactivate(ctx); err != nil {
		return fmt.Errorf("could not deactivate agent: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage("Agent deactivated")
}
