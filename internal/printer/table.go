package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/slok/herd/internal/model"
)

// TablePrinter prints workflow information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTasks prints tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPRIORITY\tASSIGNED\tDEPS")
	for _, task := range tasks {
		assigned := task.AssignedTo
		if assigned == "" {
			assigned = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\n",
			task.ID, task.Name, task.Status, task.Priority, assigned, len(task.Dependencies))
	}

	return nil
}

// PrintTask prints detailed task information.
func (t *TablePrinter) PrintTask(task model.Task) error {
	fmt.Fprintf(t.writer, "ID:          %s\n", task.ID)
	fmt.Fprintf(t.writer, "Name:        %s\n", task.Name)
	if task.Description != "" {
		fmt.Fprintf(t.writer, "Description: %s\n", task.Description)
	}
	fmt.Fprintf(t.writer, "Status:      %s\n", task.Status)
	fmt.Fprintf(t.writer, "Priority:    %d\n", task.Priority)
	if task.AssignedTo != "" {
		fmt.Fprintf(t.writer, "Assigned:    %s\n", task.AssignedTo)
	}
	if len(task.Dependencies) > 0 {
		fmt.Fprintf(t.writer, "Depends on:  %s\n", strings.Join(task.Dependencies, ", "))
	}
	if len(task.Dependents) > 0 {
		fmt.Fprintf(t.writer, "Blocks:      %s\n", strings.Join(task.Dependents, ", "))
	}
	for _, f := range task.Files {
		methods := ""
		if len(f.Methods) > 0 {
			methods = " (" + strings.Join(f.Methods, ", ") + ")"
		}
		fmt.Fprintf(t.writer, "File:        %s %s%s\n", f.Operation, f.Path, methods)
	}
	if task.Result != nil {
		fmt.Fprintf(t.writer, "Completed:   %s\n", FormatTimestamp(task.Result.CompletedAt))
		fmt.Fprintf(t.writer, "Summary:     %s\n", task.Result.Summary)
		if task.Result.OutputRef != "" {
			fmt.Fprintf(t.writer, "Output:      %s\n", task.Result.OutputRef)
		}
	}
	fmt.Fprintf(t.writer, "Created:     %s\n", TimeAgo(task.CreatedAt))

	return nil
}

// PrintProgress prints workflow progress.
func (t *TablePrinter) PrintProgress(p model.Progress) error {
	fmt.Fprintf(t.writer, "Total tasks: %d\n", p.Total)
	for _, status := range []model.TaskStatus{
		model.TaskStatusPending,
		model.TaskStatusInProgress,
		model.TaskStatusCompleted,
		model.TaskStatusBlocked,
		model.TaskStatusFailed,
	} {
		if count := p.ByStatus[status]; count > 0 {
			fmt.Fprintf(t.writer, "  %-12s %d\n", status+":", count)
		}
	}
	fmt.Fprintf(t.writer, "Completed:   %d%%\n", p.Percentage)

	return nil
}

// PrintAgents prints agents in a table format.
func (t *TablePrinter) PrintAgents(agents []model.Agent) error {
	if len(agents) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCLAIMED\tLAST ACTIVE")
	for _, a := range agents {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			a.ID, a.Name, a.Status, len(a.ClaimedTasks), TimeAgo(a.LastActive))
	}

	return nil
}

// PrintAgent prints detailed agent information.
func (t *TablePrinter) PrintAgent(a model.Agent) error {
	fmt.Fprintf(t.writer, "ID:          %s\n", a.ID)
	fmt.Fprintf(t.writer, "Name:        %s\n", a.Name)
	fmt.Fprintf(t.writer, "Status:      %s\n", a.Status)
	if len(a.ClaimedTasks) > 0 {
		fmt.Fprintf(t.writer, "Claimed:     %s\n", strings.Join(a.ClaimedTasks, ", "))
	}
	fmt.Fprintf(t.writer, "Last active: %s\n", TimeAgo(a.LastActive))
	fmt.Fprintf(t.writer, "Created:     %s\n", TimeAgo(a.CreatedAt))

	return nil
}

// PrintLockStatus prints the lease state of a path.
func (t *TablePrinter) PrintLockStatus(path string, locks []model.FileLock, wasExpired bool) error {
	if len(locks) == 0 {
		if wasExpired {
			fmt.Fprintf(t.writer, "%s is not locked (previous lease expired)\n", path)
		} else {
			fmt.Fprintf(t.writer, "%s is not locked\n", path)
		}
		return nil
	}

	fmt.Fprintf(t.writer, "%s is locked:\n", path)
	for _, l := range locks {
		fmt.Fprintf(t.writer, "  %s on %s, expires in %s",
			l.AgentID, strings.Join(l.Methods, ","), FormatDuration(time.Until(l.ExpiresAt)))
		if l.Reason != "" {
			fmt.Fprintf(t.writer, " (%s)", l.Reason)
		}
		fmt.Fprintln(t.writer)
	}

	return nil
}

// PrintModifications prints modification records in a table format.
func (t *TablePrinter) PrintModifications(mods []model.FileModification) error {
	if len(mods) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "PATH\tMETHOD\tAGENT\tWHEN\tREASON")
	for _, m := range mods {
		method := m.Method
		if method == "" {
			method = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.Path, method, m.AgentID, TimeAgo(m.ModifiedAt), m.Reason)
	}

	return nil
}

// PrintSuggestions prints refactor suggestions in a table format.
func (t *TablePrinter) PrintSuggestions(sugs []model.RefactorSuggestion) error {
	if len(sugs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tPATH\tMETHOD\tPRIORITY\tREASON")
	for _, s := range sugs {
		method := s.Method
		if method == "" {
			method = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Path, method, s.Priority, s.Reason)
	}

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}
