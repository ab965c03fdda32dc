package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/practice-tracker/internal/model"
	"github.com/sakif/practice-tracker/internal/repository"
)

// TopicCache is an optional read-through copy of the catalog. Entries are
// keyed by the store's catalog id.
type TopicCache interface {
	GetTopics(ctx context.Context, catalogID string) ([]model.Topic, bool, error)
	SetTopics(ctx context.Context, catalogID string, topics []model.Topic) error
}

// CatalogService serves the topic catalog, seeding the store on first read.
type CatalogService struct {
	topics repository.TopicRepository
	seed   []model.Topic
	cache  TopicCache // nil disables caching
	logger *slog.Logger

	// seedMu keeps concurrent first requests in this process from racing to
	// seed; the store's transaction covers other processes.
	seedMu sync.Mutex
}

func NewCatalogService(topics repository.TopicRepository, seed []model.Topic, cache TopicCache, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		topics: topics,
		seed:   seed,
		cache:  cache,
		logger: logger,
	}
}

// ListTopics returns the full catalog. An empty store is seeded once and re-read.
//
// The store is always asked for its catalog id first, so a cached copy is only
// served for the catalog the store actually holds.
func (s *CatalogService) ListTopics(ctx context.Context) ([]model.Topic, error) {
	catalogID, err := s.topics.CatalogID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog id: %w", err)
	}

	var topics []model.Topic
	if catalogID == "" {
		topics, err = s.seedAndReload(ctx)
		if err != nil {
			return nil, err
		}
		if len(topics) > 0 {
			catalogID = topics[0].ID
		}
	} else {
		if cached, ok := s.cached(ctx, catalogID); ok {
			return cached, nil
		}
		topics, err = s.topics.ListTopics(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing topics: %w", err)
		}
	}

	if s.cache != nil && catalogID != "" {
		if err := s.cache.SetTopics(ctx, catalogID, topics); err != nil {
			s.logger.Warn("catalog cache write failed", slog.String("error", err.Error()))
		}
	}

	return topics, nil
}

func (s *CatalogService) cached(ctx context.Context, catalogID string) ([]model.Topic, bool) {
	if s.cache == nil {
		return nil, false
	}
	topics, ok, err := s.cache.GetTopics(ctx, catalogID)
	if err != nil {
		s.logger.Warn("catalog cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	return topics, ok && len(topics) > 0
}

func (s *CatalogService) seedAndReload(ctx context.Context) ([]model.Topic, error) {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	seeded, err := s.topics.SeedTopics(ctx, s.seed)
	if err != nil {
		s.logger.Error("failed to seed catalog", slog.String("error", err.Error()))
		return nil, fmt.Errorf("seeding topics: %w", err)
	}
	if seeded {
		s.logger.Info("catalog seeded", slog.Int("topics", len(s.seed)))
	}

	topics, err := s.topics.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing topics after seed: %w", err)
	}
	return topics, nil
}
