package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
)

type AgentTakeoverCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	agentID string
}

// NewAgentTakeoverCommand returns the agent takeover command.
func NewAgentTakeoverCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentTakeoverCommand {
	c := &AgentTakeoverCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("takeover", "Take over another agent's tasks and leases.")
	c.Cmd.Arg("agent-id", "Id of the agent to take over.").Required().StringVar(&c.agentID)

	return c
}

func (c AgentTakeoverCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentTakeoverCommand) Run(ctx context.Context) error {
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

	inherited, err := svc.Takeover(ctx, c.agentID)
	if err != nil {
		return fmt.Errorf("could not take over agent: %w", err)
	}

	p := c.rootCmd.NewPrinter()
	if len(inherited) == 0 {
		return p.PrintMessage(fmt.Sprintf("Took over %s, no tasks inherited", c.agentID))
	}
	return p.PrintMessage(fmt.Sprintf("Took over %s, inherited tasks: %s", c.agentID, strings.Join(inherited, ", ")))
}
