package storage

import (
	"context"

	"github.com/slok/herd/internal/model"
)

// DocumentRepository is the interface for shared workflow document
// persistence. The contract is whole-document read-modify-write: callers
// load a private snapshot, mutate it and save it back. There is no
// cross-process transaction, concurrent writers can lose updates (see
// backend docs).
type DocumentRepository interface {
	// InitDocument creates the workflow document. Fails with
	// model.ErrAlreadyExists if one already exists.
	InitDocument(ctx context.Context, project string) (*model.Document, error)
	// GetDocument returns the full workflow document. Fails with
	// model.ErrNotInitialized if it was never created.
	GetDocument(ctx context.Context) (*model.Document, error)
	// SaveDocument persists the full workflow document stamping a fresh
	// updated timestamp.
	SaveDocument(ctx context.Context, doc *model.Document) error
}

// OutputRepository stores large task outputs outside the shared document,
// keyed by task id.
type OutputRepository interface {
	// WriteTaskOutput stores the output content and returns a reference to
	// it.
	WriteTaskOutput(ctx context.Context, taskID, content string) (ref string, err error)
	// ReadTaskOutput returns a task's stored output. Fails with
	// model.ErrNotFound if none was recorded.
	ReadTaskOutput(ctx context.Context, taskID string) (string, error)
}

// IdentityRepository is the single-slot local agent identity reference
// scoped to the invoking context.
type IdentityRepository interface {
	// GetLocalAgentID returns the remembered agent id. Fails with
	// model.ErrNotFound if none is remembered.
	GetLocalAgentID(ctx context.Context) (string, error)
	SaveLocalAgentID(ctx context.Context, id string) error
	ClearLocalAgentID(ctx context.Context) error
}

// Repository groups the three persistence concerns the coordinators need.
type Repository interface {
	DocumentRepository
	OutputRepository
	IdentityRepository
}
