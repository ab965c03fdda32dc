package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/practice-tracker/internal/apperror"
	"github.com/sakif/practice-tracker/internal/model"
)

const progressColumns = `id, user_id, problem_id, completed, created_at, updated_at`

func (db *DB) ListProgress(ctx context.Context, userID string) ([]model.Progress, error) {
	return db.listProgress(ctx,
		`SELECT `+progressColumns+` FROM progress
		 WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
}

func (db *DB) ListCompletedProgress(ctx context.Context, userID string) ([]model.Progress, error) {
	return db.listProgress(ctx,
		`SELECT `+progressColumns+` FROM progress
		 WHERE user_id = $1 AND completed ORDER BY created_at, id`,
		userID,
	)
}

func (db *DB) listProgress(ctx context.Context, query string, args ...any) ([]model.Progress, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing progress: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanProgress)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning progress: %w", err)
	}
	if records == nil {
		records = make([]model.Progress, 0)
	}
	return records, nil
}

func scanProgress(row pgx.CollectableRow) (model.Progress, error) {
	var p model.Progress
	err := row.Scan(&p.ID, &p.UserID, &p.ProblemID, &p.Completed, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (db *DB) GetProgress(ctx context.Context, userID, problemID string) (*model.Progress, error) {
	var p model.Progress
	err := db.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM progress
		 WHERE user_id = $1 AND problem_id = $2`,
		userID, problemID,
	).Scan(&p.ID, &p.UserID, &p.ProblemID, &p.Completed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("progress", problemID)
		}
		return nil, fmt.Errorf("postgres: getting progress %s/%s: %w", userID, problemID, err)
	}
	return &p, nil
}

// UpsertProgress is a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING,
// so the stored row comes back without a second query.
func (db *DB) UpsertProgress(ctx context.Context, p *model.Progress) error {
	now := time.Now().UTC()

	err := db.pool.QueryRow(ctx,
		`INSERT INTO progress (id, user_id, problem_id, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (user_id, problem_id) DO UPDATE SET
			completed  = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+progressColumns,
		xid.New().String(), p.UserID, p.ProblemID, p.Completed, now,
	).Scan(&p.ID, &p.UserID, &p.ProblemID, &p.Completed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting progress %s/%s: %w", p.UserID, p.ProblemID, err)
	}
	return nil
}
