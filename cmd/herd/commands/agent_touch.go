package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
)

type AgentTouchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewAgentTouchCommand returns the agent touch command.
func NewAgentTouchCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentTouchCommand {
	c := &AgentTouchCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("touch", "Refresh the current agent's liveness.")

	return c
}

func (c AgentTouchCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentTouchCommand) Run(ctx context.Context) error {
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

	if err := svc.Touch(ctx); err != nil {
		return fmt.Errorf("could not refresh agent liveness: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage("Agent liveness refreshed")
}
