package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
)

type AgentListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	all bool
}

// NewAgentListCommand returns the agent list command.
func NewAgentListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentListCommand {
	c := &AgentListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List registered agents.").Alias("ls")
	c.Cmd.Flag("all", "Include terminated agents.").Short('a').BoolVar(&c.all)

	return c
}

func (c AgentListCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentListCommand) Run(ctx context.Context) error {
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

	agents, err := svc.List(ctx, appagent.ListRequest{IncludeTerminated: c.all})
	if err != nil {
		return fmt.Errorf("could not list agents: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintAgents(agents)
}
