package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	apptask "github.com/slok/herd/internal/app/task"
	"github.com/slok/herd/internal/model"
)

type TaskAddCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name         string
	description  string
	priority     int
	dependencies []string
	files        []string
	async        bool
}

// NewTaskAddCommand returns the task add command.
func NewTaskAddCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TaskAddCommand {
	c := &TaskAddCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("add", "Add a new task to the workflow.")
	c.Cmd.Flag("name", "Name of the task.").Short('n').Required().StringVar(&c.name)
	c.Cmd.Flag("description", "Free text description.").Short('d').StringVar(&c.description)
	c.Cmd.Flag("priority", "Priority of the task, lower is more urgent.").Default("5").IntVar(&c.priority)
	c.Cmd.Flag("depends-on", "Task id this task depends on (repeatable).").StringsVar(&c.dependencies)
	c.Cmd.Flag("file", "Planned file operation as 'operation:path[:method1,method2]' (repeatable).").StringsVar(&c.files)
	c.Cmd.Flag("async", "Mark the task as async.").BoolVar(&c.async)

	return c
}

func (c TaskAddCommand) Name() string { return c.Cmd.FullCommand() }

func (c TaskAddCommand) Run(ctx context.Context) error {
	files, err := parseFileOperations(c.files)
	if err != nil {
		return err
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

	t, err := svc.Add(ctx, apptask.AddRequest{
		Name:         c.name,
		Description:  c.description,
		Priority:     c.priority,
		Dependencies: c.dependencies,
		Files:        files,
		Async:        c.async,
	})
	if err != nil {
		return fmt.Errorf("could not add task: %w", err)
	}

	return c.rootCmd.NewPrinter().PrintTask(*t)
}

// parseFileOperations parses 'operation:path[:method1,method2]' specs.
func parseFileOperations(specs []string) ([]model.FileOperation, error) {
	ops := make([]model.FileOperation, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid file operation %q, expected 'operation:path[:methods]'", spec)
		}

		kind := model.FileOperationKind(parts[0])
		switch kind {
		case model.FileOperationCreate, model.FileOperationModify, model.FileOperationDelete:
		default:
			return nil, fmt.Errorf("invalid file operation kind %q", parts[0])
		}

		op := model.FileOperation{Path: parts[1], Operation: kind}
		if len(parts) == 3 && parts[2] != "" {
			op.Methods = strings.Split(parts[2], ",")
		}
		ops = append(ops, op)
	}

	return ops, nil
}
