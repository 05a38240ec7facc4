package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	apptask "github.com/slok/herd/internal/app/task"
)

type TaskCompleteCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID     string
	summary    string
	output     string
	outputFile string
}

// NewTaskCompleteCommand returns the task complete command.
func NewTaskCompleteCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskCompleteCommand {
	c := &TaskCompleteCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("complete", "Mark a task as completed.")
	c.Cmd.Arg("task-id", "Id of the task to complete.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("summary", "Short completion summary.").Short('s').Required().StringVar(&c.summary)
	c.Cmd.Flag("output", "Detailed output, stored outside the document.").StringVar(&c.output)
	c.Cmd.Flag("output-file", "Read the detailed output from a file ('-' for stdin).").StringVar(&c.outputFile)

	return c
}

func (c TaskCompleteCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskCompleteCommand) Run(ctx context.Context) error {
	output := c.output
	if c.outputFile != "" {
		data, err := c.readOutputFile()
		if err != nil {
			return err
		}
		output = data
	}

	repo, close, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return fmt.Errorf("could not create store: %w", err)
	}
	defer close()

	svc, err := apptask.NewService(apptask.ServiceConfig{
		Repository: repo,
		Outputs:    repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task service: %w", err)
	}

	result, err := svc.Complete(ctx, apptask.CompleteRequest{
		TaskID:  c.taskID,
		Summary: c.summary,
		Output:  output,
	})
	if err != nil {
		return fmt.Errorf("could not complete task: %w", err)
	}

	p := c.rootCmd.NewPrinter()
	if err := p.PrintTask(*result.Task); err != nil {
		return err
	}
	if len(result.Unblocked) > 0 {
		return p.PrintMessage(fmt.Sprintf("Unblocked tasks: %s", strings.Join(result.Unblocked, ", ")))
	}

	return nil
}

func (c TaskCompleteCommand) readOutputFile() (string, error) {
	if c.outputFile == "-" {
		data, err := io.ReadAll(c.rootCmd.Stdin)
		if err != nil {
			return "", fmt.Errorf("could not read output from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(c.outputFile)
	if err != nil {
		return "", fmt.Errorf("could not read output file: %w", err)
	}
	return string(data), nil
}
