package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/practice-tracker/internal/model"
)

// ListTopics returns every topic in seed order with its problems embedded.
//
// Two queries instead of a JOIN: topics with no problems still appear, and
// the grouping below is a single pass over problems sorted by topic.
func (db *DB) ListTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, description, created_at, updated_at
		 FROM topics
		 ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing topics: %w", err)
	}
	defer rows.Close()

	topics := make([]model.Topic, 0)
	index := make(map[string]int)
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning topic row: %w", err)
		}
		t.Problems = make([]model.Problem, 0)
		index[t.ID] = len(topics)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating topics: %w", err)
	}
	if len(topics) == 0 {
		return topics, nil
	}

	prows, err := db.conn.QueryContext(ctx,
		`SELECT id, topic_id, title, level, leetcode_link, codeforces_link,
		        youtube_link, article_link, created_at, updated_at
		 FROM problems
		 ORDER BY topic_id, position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing problems: %w", err)
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
			return nil, fmt.Errorf("sqlite: scanning problem row: %w", err)
		}
		i, ok := index[topicID]
		if !ok {
			continue
		}
		topics[i].Problems = append(topics[i].Problems, p)
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating problems: %w", err)
	}

	return topics, nil
}

// CatalogID returns the id of the first topic in seed order, or "" if there is none.
func (db *DB) CatalogID(ctx context.Context) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM topics ORDER BY position, id LIMIT 1`,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("sqlite: reading catalog id: %w", err)
	}
	return id, nil
}

// SeedTopics inserts topics inside one transaction, but only when the topics
// table is empty. It returns false without writing anything otherwise.
// The caller's slice is not modified.
func (db *DB) SeedTopics(ctx context.Context, topics []model.Topic) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM topics`).Scan(&count); err != nil {
		return false, fmt.Errorf("sqlite: counting topics: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	now := time.Now().UTC()
	for i, t := range topics {
		topicID := xid.New().String()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO topics (id, position, title, description, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			topicID, i, t.Title, t.Description, now, now,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: inserting topic %q: %w", t.Title, err)
		}

		for j, p := range t.Problems {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO problems (id, topic_id, position, title, level, leetcode_link,
				                       codeforces_link, youtube_link, article_link, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				xid.New().String(), topicID, j, p.Title, p.Level, p.LeetcodeLink,
				p.CodeforcesLink, p.YoutubeLink, p.ArticleLink, now, now,
			)
			if err != nil {
				return false, fmt.Errorf("sqlite: inserting problem %q: %w", p.Title, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing seed: %w", err)
	}
	return true, nil
}
