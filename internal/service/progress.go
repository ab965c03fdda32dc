package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sakif/practice-tracker/internal/apperror"
	"github.com/sakif/practice-tracker/internal/model"
	"github.com/sakif/practice-tracker/internal/repository"
)

// ProgressService owns per-user completion records and the statistics
// derived from them. It reads the catalog as stored and never seeds it.
type ProgressService struct {
	progress repository.ProgressRepository
	topics   repository.TopicRepository
	logger   *slog.Logger
}

func NewProgressService(progress repository.ProgressRepository, topics repository.TopicRepository, logger *slog.Logger) *ProgressService {
	return &ProgressService{
		progress: progress,
		topics:   topics,
		logger:   logger,
	}
}

// Enrich returns the user's progress records in store order, each with its
// problem id replaced by the catalog problem when one matches.
func (s *ProgressService) Enrich(ctx context.Context, userID string) ([]model.EnrichedProgress, error) {
	records, err := s.progress.ListProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing progress for user %s: %w", userID, err)
	}

	topics, err := s.topics.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	index := problemIndex(topics)

	out := make([]model.EnrichedProgress, 0, len(records))
	for _, p := range records {
		out = append(out, model.EnrichedProgress{
			ID:        p.ID,
			UserID:    p.UserID,
			ProblemID: model.ProblemRef{ID: p.ProblemID, Problem: index[p.ProblemID]},
			Completed: p.Completed,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

// problemIndex maps problem id to problem across all topics. The first
// occurrence wins if an id repeats.
func problemIndex(topics []model.Topic) map[string]*model.Problem {
	index := make(map[string]*model.Problem)
	for i := range topics {
		for j := range topics[i].Problems {
			p := &topics[i].Problems[j]
			if _, seen := index[p.ID]; !seen {
				index[p.ID] = p
			}
		}
	}
	return index
}

// Upsert sets the completion flag for (userID, problemID), creating the record
// on first use. problemID is not checked against the catalog.
func (s *ProgressService) Upsert(ctx context.Context, userID, problemID string, completed bool) (*model.Progress, error) {
	if problemID == "" {
		return nil, apperror.ValidationFailed("problemId", "problemId required")
	}

	p := &model.Progress{
		UserID:    userID,
		ProblemID: problemID,
		Completed: completed,
	}
	if err := s.progress.UpsertProgress(ctx, p); err != nil {
		s.logger.Error("failed to upsert progress",
			slog.String("userID", userID),
			slog.String("problemID", problemID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("upserting progress: %w", err)
	}

	s.logger.Debug("progress upserted",
		slog.String("id", p.ID),
		slog.String("userID", userID),
		slog.String("problemID", problemID),
		slog.Bool("completed", p.Completed),
	)
	return p, nil
}

type difficulty int

const (
	unrated difficulty = iota
	easy
	medium
	hard
)

// classify buckets a free-text level. Checks run in order, so "easy-medium"
// counts as easy. Levels matching nothing are unrated.
func classify(level string, lower cases.Caser) difficulty {
	l := lower.String(level)
	switch {
	case strings.Contains(l, "easy"):
		return easy
	case strings.Contains(l, "medium"):
		return medium
	case strings.Contains(l, "hard"), strings.Contains(l, "tough"):
		return hard
	}
	return unrated
}

// Summarize returns the percentage of catalog problems the user has completed
// in each difficulty bucket.
func (s *ProgressService) Summarize(ctx context.Context, userID string) (model.Summary, error) {
	topics, err := s.topics.ListTopics(ctx)
	if err != nil {
		return model.Summary{}, fmt.Errorf("listing topics: %w", err)
	}

	completed, err := s.progress.ListCompletedProgress(ctx, userID)
	if err != nil {
		return model.Summary{}, fmt.Errorf("listing completed progress for user %s: %w", userID, err)
	}
	doneIDs := make(map[string]struct{}, len(completed))
	for _, p := range completed {
		doneIDs[p.ProblemID] = struct{}{}
	}

	// A Caser is stateful, so each call gets its own.
	lower := cases.Lower(language.Und)

	var total, done [hard + 1]int
	for _, t := range topics {
		for _, p := range t.Problems {
			d := classify(p.Level, lower)
			if d == unrated {
				continue
			}
			total[d]++
			if _, ok := doneIDs[p.ID]; ok {
				done[d]++
			}
		}
	}

	return model.Summary{
		Easy:   percent(done[easy], total[easy]),
		Medium: percent(done[medium], total[medium]),
		Hard:   percent(done[hard], total[hard]),
	}, nil
}

// percent is done/total as a whole percentage rounded half up; 0 when total is 0.
func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(done)/float64(total)*100 + 0.5))
}
