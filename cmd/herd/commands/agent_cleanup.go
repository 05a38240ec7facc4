package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	appagent "github.com/slok/herd/internal/app/agent"
)

type AgentCleanupCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	days int
}

// NewAgentCleanupCommand returns the agent cleanup command.
func NewAgentCleanupCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentCleanupCommand {
	c := &AgentCleanupCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("cleanup", "Delete terminated agents idle past a retention window.")
	c.Cmd.Flag("days", "Retention window in days.").Default("7").IntVar(&c.days)

	return c
}

func (c AgentCleanupCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentCleanupCommand) Run(ctx context.Context) error {
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

	removed, err := svc.CleanupTerminated(ctx, time.Duration(c.days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("could not cleanup agents: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage(fmt.Sprintf("Removed %d terminated agents", removed))
}
