package yamlfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slok/herd/internal/conventions"
	"github.com/slok/herd/internal/log"
	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage/docenc"
)

// RepositoryConfig is the configuration for the YAML file repository.
type RepositoryConfig struct {
	// DataDir is the directory holding the workflow document, the task
	// outputs and the local agent identity file.
	DataDir string
	Logger  log.Logger
	// Now is the clock used to stamp document updates, defaults to
	// time.Now.
	Now func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.YAMLFile"})

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Repository is a YAML file implementation of storage.Repository: one
// workflow document file plus side files for task outputs and the local
// agent identity.
//
// There is no cross-process locking around load+save, two concurrent
// writers can lose updates (last save wins). The tool accepts this race:
// the document is the only coordination channel and its writers are
// human-paced.
type Repository struct {
	dataDir string
	logger  log.Logger
	now     func() time.Time
}

// NewRepository creates a new YAML file repository, creating the data dir if
// missing.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	return &Repository{
		dataDir: cfg.DataDir,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// InitDocument creates the workflow document file.
func (r *Repository) InitDocument(ctx context.Context, project string) (*model.Document, error) {
	docPath := conventions.DocumentPath(r.dataDir)
	if _, err := os.Stat(docPath); err == nil {
		return nil, fmt.Errorf("workflow document at %s: %w", docPath, model.ErrAlreadyExists)
	}

	doc := model.NewDocument(project, r.now())
	if err := r.write(doc); err != nil {
		return nil, err
	}

	r.logger.Infof("Workflow document initialized at %s", docPath)

	return doc, nil
}

// GetDocument loads the full workflow document from disk.
func (r *Repository) GetDocument(ctx context.Context) (*model.Document, error) {
	data, err := os.ReadFile(conventions.DocumentPath(r.dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrNotInitialized
		}
		return nil, fmt.Errorf("reading workflow document: %w", err)
	}

	doc, err := docenc.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding workflow document: %w", err)
	}

	return doc, nil
}

// SaveDocument persists the full workflow document stamping a fresh updated
// timestamp.
func (r *Repository) SaveDocument(ctx context.Context, doc *model.Document) error {
	doc.UpdatedAt = r.now()
	return r.write(doc)
}

func (r *Repository) write(doc *model.Document) error {
	data, err := docenc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encoding workflow document: %w", err)
	}

	docPath := conventions.DocumentPath(r.dataDir)

	// Write to a temp file and rename so readers never see a partial
	// document.
	tmp, err := os.CreateTemp(r.dataDir, conventions.DocumentFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp document: %w", err)
	}

	if err := os.Rename(tmp.Name(), docPath); err != nil {
		return fmt.Errorf("replacing workflow document: %w", err)
	}

	return nil
}

// WriteTaskOutput stores a task output as a side file and returns its path
// relative to the data dir.
func (r *Repository) WriteTaskOutput(ctx context.Context, taskID, content string) (string, error) {
	outPath := conventions.OutputPath(r.dataDir, taskID)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("creating outputs directory: %w", err)
	}

	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing task output: %w", err)
	}

	rel, err := filepath.Rel(r.dataDir, outPath)
	if err != nil {
		rel = outPath
	}

	return filepath.ToSlash(rel), nil
}

// ReadTaskOutput returns a task's stored output.
func (r *Repository) ReadTaskOutput(ctx context.Context, taskID string) (string, error) {
	data, err := os.ReadFile(conventions.OutputPath(r.dataDir, taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("output for task %s: %w", taskID, model.ErrNotFound)
		}
		return "", fmt.Errorf("reading task output: %w", err)
	}

	return string(data), nil
}

// GetLocalAgentID returns the agent id remembered in the identity file.
func (r *Repository) GetLocalAgentID(ctx context.Context) (string, error) {
	data, err := os.ReadFile(conventions.AgentIDPath(r.dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("local agent identity: %w", model.ErrNotFound)
		}
		return "", fmt.Errorf("reading agent identity: %w", err)
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", fmt.Errorf("local agent identity: %w", model.ErrNotFound)
	}

	return id, nil
}

// SaveLocalAgentID remembers the local agent id in the identity file.
func (r *Repository) SaveLocalAgentID(ctx context.Context, id string) error {
	if err := os.WriteFile(conventions.AgentIDPath(r.dataDir), []byte(id+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing agent identity: %w", err)
	}
	return nil
}

// ClearLocalAgentID forgets the local agent id.
func (r *Repository) ClearLocalAgentID(ctx context.Context) error {
	err := os.Remove(conventions.AgentIDPath(r.dataDir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing agent identity: %w", err)
	}
	return nil
}
