package index

import (
	"context"

	"github.com/starford/asteria/internal/models"
)

// ModelIndex defines the persistence operations the project service needs.
// Consumers should depend on this interface rather than the concrete *DB type.
type ModelIndex interface {
	InsertModel(ctx context.Context, m models.LocalModel) error
	DeleteModel(ctx context.Context, id int64) error
	ModelsForProject(ctx context.Context, projectID int64) ([]models.LocalModel, error)
	MaxModelID(ctx context.Context) (int64, error)
	SaveSnapshot(ctx context.Context, s Snapshot) error
	LoadSnapshot(ctx context.Context, projectID int64) (*Snapshot, error)
	Close() error
}

// Verify *DB satisfies ModelIndex at compile time.
var _ ModelIndex = (*DB)(nil)
