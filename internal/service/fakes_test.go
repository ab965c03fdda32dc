package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/practice-tracker/internal/apperror"
	"github.com/sakif/practice-tracker/internal/model"
	"github.com/sakif/practice-tracker/internal/repository"
)

var _ repository.Store = (*memStore)(nil)

// memStore is an in-memory repository.Store. Error fields simulate a
// failing database for the call they name.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	topics   []model.Topic
	progress []model.Progress
	nextID   int
	idSpace  string // prefixes generated ids, so two stores never share one

	seedCalls       int
	seedInserts     int
	listTopicsCalls int

	listTopicsErr   error
	listProgressErr error
	upsertErr       error
	getUserErr      error

	// beforeCreate runs inside CreateUser before the duplicate check.
	beforeCreate func(s *memStore, u *model.User)
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*model.User)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%s-%d", s.idSpace, prefix, s.nextID)
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) ListTopics(context.Context) ([]model.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listTopicsCalls++
	if s.listTopicsErr != nil {
		return nil, s.listTopicsErr
	}
	out := make([]model.Topic, len(s.topics))
	for i, t := range s.topics {
		t.Problems = append([]model.Problem(nil), t.Problems...)
		out[i] = t
	}
	return out, nil
}

func (s *memStore) CatalogID(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listTopicsErr != nil {
		return "", s.listTopicsErr
	}
	if len(s.topics) == 0 {
		return "", nil
	}
	return s.topics[0].ID, nil
}

// reset drops the catalog and all progress, like a fresh database.
func (s *memStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = nil
	s.progress = nil
}

func (s *memStore) SeedTopics(_ context.Context, topics []model.Topic) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedCalls++
	if len(s.topics) > 0 {
		return false, nil
	}
	s.seedInserts++
	s.putTopics(topics)
	return true, nil
}

// putTopics stores topics, assigning ids the way a store would. Caller holds mu.
func (s *memStore) putTopics(topics []model.Topic) {
	for _, t := range topics {
		t.ID = s.id("topic")
		problems := make([]model.Problem, len(t.Problems))
		for j, p := range t.Problems {
			p.ID = s.id("problem")
			problems[j] = p
		}
		t.Problems = problems
		s.topics = append(s.topics, t)
	}
}

func (s *memStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeCreate != nil {
		s.beforeCreate(s, u)
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	u.ID = s.id("user")
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (s *memStore) ListProgress(_ context.Context, userID string) ([]model.Progress, error) {
	return s.filterProgress(userID, false)
}

func (s *memStore) ListCompletedProgress(_ context.Context, userID string) ([]model.Progress, error) {
	return s.filterProgress(userID, true)
}

func (s *memStore) filterProgress(userID string, completedOnly bool) ([]model.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listProgressErr != nil {
		return nil, s.listProgressErr
	}
	out := make([]model.Progress, 0)
	for _, p := range s.progress {
		if p.UserID == userID && (!completedOnly || p.Completed) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) GetProgress(_ context.Context, userID, problemID string) (*model.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.progress {
		if p.UserID == userID && p.ProblemID == problemID {
			out := p
			return &out, nil
		}
	}
	return nil, apperror.NotFound("progress", problemID)
}

func (s *memStore) UpsertProgress(_ context.Context, p *model.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	now := time.Now().UTC()
	for i := range s.progress {
		existing := &s.progress[i]
		if existing.UserID == p.UserID && existing.ProblemID == p.ProblemID {
			existing.Completed = p.Completed
			existing.UpdatedAt = now
			*p = *existing
			return nil
		}
	}
	p.ID = s.id("progress")
	p.CreatedAt = now
	p.UpdatedAt = now
	s.progress = append(s.progress, *p)
	return nil
}

// seeded returns a store already holding topics, plus the assigned problem ids
// in catalog order.
func seeded(topics ...model.Topic) (*memStore, []string) {
	s := newMemStore()
	s.putTopics(topics)
	var ids []string
	for _, t := range s.topics {
		for _, p := range t.Problems {
			ids = append(ids, p.ID)
		}
	}
	return s, ids
}

func topic(title string, levels ...string) model.Topic {
	t := model.Topic{Title: title}
	for i, level := range levels {
		t.Problems = append(t.Problems, model.Problem{
			Title: fmt.Sprintf("%s #%d", title, i+1),
			Level: level,
		})
	}
	return t
}
