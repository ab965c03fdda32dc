package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/practice-tracker/internal/model"
)

// seedLockKey serializes concurrent seeders across processes sharing the database.
const seedLockKey = "practice-tracker:seed-catalog"

func (db *DB) ListTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, description, created_at, updated_at
		 FROM topics ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing topics: %w", err)
	}

	topics := make([]model.Topic, 0)
	index := make(map[string]int)
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: scanning topic row: %w", err)
		}
		t.Problems = make([]model.Problem, 0)
		index[t.ID] = len(topics)
		topics = append(topics, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating topics: %w", err)
	}
	if len(topics) == 0 {
		return topics, nil
	}

	prows, err := db.pool.Query(ctx,
		`SELECT id, topic_id, title, level, leetcode_link, codeforces_link,
		        youtube_link, article_link, created_at, updated_at
		 FROM problems ORDER BY topic_id, position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing problems: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var (
			p       model.Problem
			topicID string
		)
		if err := prows.Scan(
			&p.ID, &topicID, &p.Title, &p.Level, &p.LeetcodeLink, &p.CodeforcesLink,
			&p.YoutubeLink, &p.ArticleLink, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scanning problem row: %w", err)
		}
		if i, ok := index[topicID]; ok {
			topics[i].Problems = append(topics[i].Problems, p)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating problems: %w", err)
	}

	return topics, nil
}

// CatalogID returns the id of the first topic in seed order, or "" if there is none.
func (db *DB) CatalogID(ctx context.Context) (string, error) {
	var id string
	err := db.pool.QueryRow(ctx,
		`SELECT id FROM topics ORDER BY position, id LIMIT 1`,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("postgres: reading catalog id: %w", err)
	}
	return id, nil
}

// SeedTopics inserts topics when the catalog is empty. A transaction-scoped
// advisory lock makes the count-then-insert safe across processes.
func (db *DB) SeedTopics(ctx context.Context, topics []model.Topic) (bool, error) {
	seeded := false
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, seedLockKey); err != nil {
			return fmt.Errorf("taking seed lock: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM topics`).Scan(&count); err != nil {
			return fmt.Errorf("counting topics: %w", err)
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		batch := &pgx.Batch{}
		for i, t := range topics {
			topicID := xid.New().String()
			batch.Queue(
				`INSERT INTO topics (id, position, title, description, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				topicID, i, t.Title, t.Description, now, now,
			)
			for j, p := range t.Problems {
				batch.Queue(
					`INSERT INTO problems (id, topic_id, position, title, level, leetcode_link,
					                       codeforces_link, youtube_link, article_link, created_at, updated_at)
					 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
					xid.New().String(), topicID, j, p.Title, p.Level, p.LeetcodeLink,
					p.CodeforcesLink, p.YoutubeLink, p.ArticleLink, now, now,
				)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting seed catalog: %w", err)
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("postgres: seeding topics: %w", err)
	}
	return seeded, nil
}
