package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type InitCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	project string
}

// NewInitCommand returns the init command.
func NewInitCommand(rootCmd *RootCommand, app *kingpin.Application) *InitCommand {
	c := &InitCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("init", "Initialize the shared workflow document.")
	c.Cmd.Flag("project", "Name of the project.").Short('p').Required().StringVar(&c.project)

	return c
}

func (c InitCommand) Name() string { return c.Cmd.FullCommand() }

func (c InitCommand) Run(ctx context.Context) error {
	repo, close, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return fmt.Errorf("could not create store: %w", err)
	}
	defer close()

	doc, err := repo.InitDocument(ctx, c.project)
	if err != nil {
		return fmt.Errorf("could not initialize workflow: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintMessage(fmt.Sprintf("Workflow initialized for project %q (version %s)", doc.Project, doc.Version))
}
