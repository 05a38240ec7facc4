package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/herd/internal/log"
	"github.com/slok/herd/internal/model"
	"github.com/slok/herd/internal/storage/docenc"
	"github.com/slok/herd/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
	// Now is the clock used to stamp document updates, defaults to
	// time.Now.
	Now func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Repository is a SQLite implementation of storage.Repository. The workflow
// document keeps its whole-document load/save contract and is stored as a
// single YAML snapshot row; task outputs and the local identity get their
// own tables.
type Repository struct {
	db     *sql.DB
	logger log.Logger
	now    func() time.Time
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger, now: cfg.Now}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// InitDocument creates the workflow document row.
func (r *Repository) InitDocument(ctx context.Context, project string) (*model.Document, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_document`).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("could not check document existence: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("workflow document: %w", model.ErrAlreadyExists)
	}

	doc := model.NewDocument(project, r.now())
	data, err := docenc.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding workflow document: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO workflow_document (id, project, data, updated_at) VALUES (1, ?, ?, ?)`,
		project, string(data), doc.UpdatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("could not insert workflow document: %w", err)
	}

	return doc, nil
}

// GetDocument loads the full workflow document.
func (r *Repository) GetDocument(ctx context.Context) (*model.Document, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM workflow_document WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("could not read workflow document: %w", err)
	}

	doc, err := docenc.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decoding workflow document: %w", err)
	}

	return doc, nil
}

// SaveDocument persists the full workflow document stamping a fresh updated
// timestamp.
func (r *Repository) SaveDocument(ctx context.Context, doc *model.Document) error {
	doc.UpdatedAt = r.now()

	data, err := docenc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encoding workflow document: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE workflow_document SET project = ?, data = ?, updated_at = ? WHERE id = 1`,
		doc.Project, string(data), doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("could not update workflow document: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check update result: %w", err)
	}
	if rows == 0 {
		return model.ErrNotInitialized
	}

	return nil
}

// WriteTaskOutput stores a task output row and returns its reference.
func (r *Repository) WriteTaskOutput(ctx context.Context, taskID, content string) (string, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_outputs (task_id, content, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (task_id) DO UPDATE SET content = excluded.content, created_at = excluded.created_at`,
		taskID, content, r.now().Unix())
	if err != nil {
		return "", fmt.Errorf("could not write task output: %w", err)
	}

	return "sqlite://task_outputs/" + taskID, nil
}

// ReadTaskOutput returns a stored task output.
func (r *Repository) ReadTaskOutput(ctx context.Context, taskID string) (string, error) {
	var content string
	err := r.db.QueryRowContext(ctx, `SELECT content FROM task_outputs WHERE task_id = ?`, taskID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("output for task %s: %w", taskID, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("could not read task output: %w", err)
	}

	return content, nil
}

// GetLocalAgentID returns the remembered local agent id.
func (r *Repository) GetLocalAgentID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT agent_id FROM local_identity WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("local agent identity: %w", model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("could not read agent identity: %w", err)
	}

	return id, nil
}

// SaveLocalAgentID remembers the local agent id.
func (r *Repository) SaveLocalAgentID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO local_identity (id, agent_id) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET agent_id = excluded.agent_id`, id)
	if err != nil {
		return fmt.Errorf("could not save agent identity: %w", err)
	}
	return nil
}

// ClearLocalAgentID forgets the local agent id.
func (r *Repository) ClearLocalAgentID(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM local_identity WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("could not clear agent identity: %w", err)
	}
	return nil
}
