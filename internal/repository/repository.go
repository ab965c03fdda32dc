// Package repository declares the storage contracts the services depend on.
// Implementations live in the sqlite and postgres sub-packages.
package repository

import (
	"context"

	"github.com/sakif/practice-tracker/internal/model"
)

// TopicRepository is the catalog store. Problems are embedded in topics.
type TopicRepository interface {
	// ListTopics returns all topics in seed order, each with its problems in order.
	ListTopics(ctx context.Context) ([]model.Topic, error)
	// CatalogID identifies the stored catalog: the id of its first topic, or
	// "" when the catalog is empty. It changes whenever the catalog is re-seeded.
	CatalogID(ctx context.Context) (string, error)
	// SeedTopics inserts topics only if the catalog is empty, atomically.
	// It reports whether anything was inserted. IDs and timestamps are generated.
	SeedTopics(ctx context.Context, topics []model.Topic) (bool, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type ProgressRepository interface {
	ListProgress(ctx context.Context, userID string) ([]model.Progress, error)
	ListCompletedProgress(ctx context.Context, userID string) ([]model.Progress, error)
	GetProgress(ctx context.Context, userID, problemID string) (*model.Progress, error)
	// UpsertProgress creates or updates the record keyed by (UserID, ProblemID)
	// in one atomic statement and fills in ID and timestamps from the stored row.
	UpsertProgress(ctx context.Context, p *model.Progress) error
}

// Store is everything the server needs from a storage backend.
type Store interface {
	TopicRepository
	UserRepository
	ProgressRepository
	Ping(ctx context.Context) error
	Close() error
}
