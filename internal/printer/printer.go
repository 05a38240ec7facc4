package printer

import "github.com/slok/herd/internal/model"

// Printer knows how to print workflow information in different formats.
type Printer interface {
	PrintTasks(tasks []model.Task) error
	PrintTask(t model.Task) error
	PrintProgress(p model.Progress) error
	PrintAgents(agents []model.Agent) error
	PrintAgent(a model.Agent) error
	PrintLockStatus(path string, locks []model.FileLock, wasExpired bool) error
	PrintModifications(mods []model.FileModification) error
	PrintSuggestions(sugs []model.RefactorSuggestion) error
	PrintMessage(msg string) error
}
