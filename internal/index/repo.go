package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/models"
)

// Snapshot is the raw upstream payload last seen for a project.
type Snapshot struct {
	ProjectID int64
	Checksum  string
	Body      []byte
	FetchedAt time.Time
}

// InsertModel stores a locally added model.
func (db *DB) InsertModel(ctx context.Context, m models.LocalModel) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO local_models (id, project_id, challenge_id, name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.ProjectID, m.ChallengeID, m.Name, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: insert model: %w", err)
	}
	return nil
}

// DeleteModel removes a locally added model. Unknown ids yield apperr.ErrNotFound.
func (db *DB) DeleteModel(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM local_models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("index: delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("index: delete model: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ModelsForProject returns the local models of a project in insertion order.
func (db *DB) ModelsForProject(ctx context.Context, projectID int64) ([]models.LocalModel, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, project_id, challenge_id, name, created_at
		FROM local_models
		WHERE project_id = ?
		ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("index: models for project: %w", err)
	}
	defer rows.Close()

	var out []models.LocalModel
	for rows.Next() {
		var m models.LocalModel
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.ChallengeID, &m.Name, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MaxModelID returns the largest stored local model id, or 0.
func (db *DB) MaxModelID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, `SELECT MAX(id) FROM local_models`).Scan(&id); err != nil {
		return 0, fmt.Errorf("index: max model id: %w", err)
	}
	return id.Int64, nil
}

// SaveSnapshot stores the latest upstream payload for a project.
func (db *DB) SaveSnapshot(ctx context.Context, s Snapshot) error {
	if s.FetchedAt.IsZero() {
		s.FetchedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO snapshots (project_id, checksum, body, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			checksum   = excluded.checksum,
			body       = excluded.body,
			fetched_at = excluded.fetched_at
	`, s.ProjectID, s.Checksum, string(s.Body), s.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot or apperr.ErrNotFound.
func (db *DB) LoadSnapshot(ctx context.Context, projectID int64) (*Snapshot, error) {
	var (
		s    Snapshot
		body string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT project_id, checksum, body, fetched_at FROM snapshots WHERE project_id = ?
	`, projectID).Scan(&s.ProjectID, &s.Checksum, &body, &s.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: load snapshot: %w", err)
	}
	s.Body = []byte(body)
	return &s, nil
}
