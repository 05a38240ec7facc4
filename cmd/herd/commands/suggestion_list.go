package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	applock "github.com/slok/herd/internal/app/lock"
)

type SuggestionListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewSuggestionListCommand returns the suggestion list command.
func NewSuggestionListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SuggestionListCommand {
	c := &SuggestionListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List live refactor suggestions.").Alias("ls")

	return c
}

func (c SuggestionListCommand) Name() string { return c.Cmd.FullCommand() }

func (c SuggestionListCommand) Run(ctx context.Context) error {
	repo, close, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return fmt.Errorf("could not create store: %w", err)
	}
	defer close()

	svc, err := applock.NewService(applock.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create lock service: %w", err)
	}

	sugs, err := svc.ListSuggestions(ctx)
	if err != nil {
		return fmt.Errorf("could not list suggestions: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintSuggestions(sugs)
}
