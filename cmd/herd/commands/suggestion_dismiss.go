package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	applock "github.com/slok/herd/internal/app/lock"
)

type SuggestionDismissCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	suggestionID string
}

// NewSuggestionDismissCommand returns the suggestion dismiss command.
func NewSuggestionDismissCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SuggestionDismissCommand {
	c := &SuggestionDismissCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("dismiss", "Dismiss a refactor suggestion.")
	c.Cmd.Arg("suggestion-id", "Id of the suggestion.").Required().StringVar(&c.suggestionID)

	return c
}

func (c SuggestionDismissCommand) Name() string { return c.Cmd.FullCommand() }

func (c SuggestionDismissCommand) Run(ctx context.Context) error {
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

	if err := svc.DismissSuggestion(ctx, c.suggestionID); err != nil {
		return fmt.Errorf("could not dismiss suggestion: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage(fmt.Sprintf("Suggestion %s dismissed", c.suggestionID))
}
