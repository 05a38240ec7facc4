package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
)

type AgentRegisterCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name string
}

// NewAgentRegisterCommand returns the agent register command.
func NewAgentRegisterCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentRegisterCommand {
	c := &AgentRegisterCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("register", "Register or refresh the local agent identity.")
	c.Cmd.Flag("name", "Display name for the agent.").Short('n').StringVar(&c.name)

	return c
}

func (c AgentRegisterCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentRegisterCommand) Run(ctx context.Context) error {
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

	a, err := svc.GetOrCreateCurrent(ctx, c.name)
	if err != nil {
		return fmt.Errorf("could not register agent: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintAgent(*a)
}
