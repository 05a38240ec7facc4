package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default herd data directory name (relative to
	// home).
	DefaultDataDir = ".herd"

	// DocumentFile is the shared workflow document filename.
	DocumentFile = "workflow.yaml"
	// AgentIDFile holds the local agent identity for the invoking context.
	AgentIDFile = "agent-id"
	// OutputsDir is the subdirectory for out-of-document task outputs.
	OutputsDir = "outputs"
	// DBFile is the SQLite store filename.
	DBFile = "herd.db"
)

// DocumentPath returns the workflow document path inside a data dir.
func DocumentPath(dataDir string) string {
	return filepath.Join(dataDir, DocumentFile)
}

// AgentIDPath returns the local agent identity file path inside a data dir.
func AgentIDPath(dataDir string) string {
	return filepath.Join(dataDir, AgentIDFile)
}

// OutputPath returns the output file path for a task inside a data dir.
func OutputPath(dataDir, taskID string) string {
	return filepath.Join(dataDir, OutputsDir, taskID+".md")
}

// DBPath returns the SQLite store path inside a data dir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}
