package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
)

type AgentRenameCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name string
}

// NewAgentRenameCommand returns the agent rename command.
func NewAgentRenameCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentRenameCommand {
	c := &AgentRenameCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("rename", "Rename the current agent.")
	c.Cmd.Flag("name", "New display name.").Short('n').Required().StringVar(&c.name)

	return c
}

func (c AgentRenameCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentRenameCommand) Run(ctx context.Context) error {
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

	a, err := svc.Rename(ctx, c.name)
	if err != nil {
		return fmt.Errorf("could not rename agent: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintAgent(*a)
}
