package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/practice-tracker/internal/apperror"
	"github.com/sakif/practice-tracker/internal/model"
)

const progressColumns = `id, user_id, problem_id, completed, created_at, updated_at`

// ListProgress returns all of a user's records, oldest first.
func (db *DB) ListProgress(ctx context.Context, userID string) ([]model.Progress, error) {
	return db.listProgress(ctx,
		`SELECT `+progressColumns+` FROM progress
		 WHERE user_id = ?
		 ORDER BY rowid`,
		userID,
	)
}

// ListCompletedProgress returns only the user's records with completed = true.
func (db *DB) ListCompletedProgress(ctx context.Context, userID string) ([]model.Progress, error) {
	return db.listProgress(ctx,
		`SELECT `+progressColumns+` FROM progress
		 WHERE user_id = ? AND completed = 1
		 ORDER BY rowid`,
		userID,
	)
}

func (db *DB) listProgress(ctx context.Context, query string, args ...any) ([]model.Progress, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing progress: %w", err)
	}
	defer rows.Close()

	records := make([]model.Progress, 0)
	for rows.Next() {
		var p model.Progress
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProblemID, &p.Completed, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning progress row: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating progress: %w", err)
	}

	return records, nil
}

// GetProgress looks a record up by its composite key.
// Returns apperror.ErrNotFound when the pair has no record.
func (db *DB) GetProgress(ctx context.Context, userID, problemID string) (*model.Progress, error) {
	var p model.Progress

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress
		 WHERE user_id = ? AND problem_id = ?`,
		userID, problemID,
	).Scan(&p.ID, &p.UserID, &p.ProblemID, &p.Completed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("progress", problemID)
		}
		return nil, fmt.Errorf("sqlite: getting progress %s/%s: %w", userID, problemID, err)
	}

	return &p, nil
}

// UpsertProgress writes p keyed by (UserID, ProblemID).
//
// The write is a single INSERT ... ON CONFLICT DO UPDATE, so two concurrent
// calls for the same pair cannot create two rows. On conflict only completed
// and updated_at change; id and created_at keep their original values. The
// stored row is read back into p afterwards.
func (db *DB) UpsertProgress(ctx context.Context, p *model.Progress) error {
	now := time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO progress (id, user_id, problem_id, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, problem_id) DO UPDATE SET
			completed  = excluded.completed,
			updated_at = excluded.updated_at`,
		xid.New().String(), p.UserID, p.ProblemID, p.Completed, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting progress %s/%s: %w", p.UserID, p.ProblemID, err)
	}

	stored, err := db.GetProgress(ctx, p.UserID, p.ProblemID)
	if err != nil {
		return fmt.Errorf("sqlite: reading back progress: %w", err)
	}
	*p = *stored

	return nil
}
