package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/practice-tracker/internal/model"
)

// fakeCache is an in-memory TopicCache shared the way one Redis would be.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]model.Topic
	gets    int
	sets    int
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]model.Topic)}
}

func (c *fakeCache) GetTopics(_ context.Context, catalogID string) ([]model.Topic, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	topics, ok := c.entries[catalogID]
	return topics, ok, nil
}

func (c *fakeCache) SetTopics(_ context.Context, catalogID string, topics []model.Topic) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[catalogID] = topics
	return nil
}

func seedSet() []model.Topic {
	return []model.Topic{topic("Arrays", "Easy", "Medium"), topic("Trees", "Easy")}
}

func TestListTopics_SeedsEmptyStoreOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCatalogService(store, seedSet(), nil, discardLogger())

	first, err := svc.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Arrays", first[0].Title)
	assert.NotEmpty(t, first[0].Problems[0].ID)

	second, err := svc.ListTopics(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, store.seedInserts)
	assert.Equal(t, 1, store.seedCalls, "a populated store is not re-seeded")
}

func TestListTopics_ConcurrentFirstRequests(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCatalogService(store, seedSet(), nil, discardLogger())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topics, err := svc.ListTopics(ctx)
			if err != nil {
				t.Errorf("ListTopics: %v", err)
				return
			}
			if len(topics) != 2 {
				t.Errorf("got %d topics, want 2", len(topics))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.seedInserts)
	assert.Len(t, store.topics, 2)
}

func TestListTopics_ExistingCatalogNotSeeded(t *testing.T) {
	store, _ := seeded(topic("Custom", "Hard"))
	svc := NewCatalogService(store, seedSet(), nil, discardLogger())

	got, err := svc.ListTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Custom", got[0].Title)
	assert.Zero(t, store.seedCalls)
}

func TestListTopics_StoreError(t *testing.T) {
	store := newMemStore()
	store.listTopicsErr = errors.New("no such table")
	svc := NewCatalogService(store, seedSet(), nil, discardLogger())

	_, err := svc.ListTopics(context.Background())
	assert.Error(t, err)
	assert.Zero(t, store.seedCalls)
}

func TestListTopics_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fills cache", func(t *testing.T) {
		store := newMemStore()
		cache := newFakeCache()
		svc := NewCatalogService(store, seedSet(), cache, discardLogger())

		got, err := svc.ListTopics(ctx)
		require.NoError(t, err)
		assert.Equal(t, got, cache.entries[got[0].ID])
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("hit skips full read", func(t *testing.T) {
		store, _ := seeded(topic("Arrays", "Easy"))
		cache := newFakeCache()
		cache.entries[store.topics[0].ID] = []model.Topic{{ID: "cached", Title: "Cached"}}
		svc := NewCatalogService(store, seedSet(), cache, discardLogger())

		got, err := svc.ListTopics(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "cached", got[0].ID)
		assert.Zero(t, store.listTopicsCalls)
		assert.Zero(t, store.seedCalls)
	})

	t.Run("warm cache does not stand in for an empty store", func(t *testing.T) {
		store := newMemStore()
		cache := newFakeCache()
		cache.entries["stale-catalog"] = []model.Topic{{ID: "stale", Title: "Stale"}}
		svc := NewCatalogService(store, seedSet(), cache, discardLogger())

		got, err := svc.ListTopics(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, store.seedInserts)
		assert.Equal(t, store.topics[0].ID, got[0].ID)
	})

	t.Run("cache failures fall back to store", func(t *testing.T) {
		store, _ := seeded(topic("Arrays", "Easy"))
		cache := newFakeCache()
		cache.getErr = errors.New("redis down")
		cache.setErr = errors.New("redis down")
		svc := NewCatalogService(store, seedSet(), cache, discardLogger())

		got, err := svc.ListTopics(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Arrays", got[0].Title)
	})
}

// Two servers with their own databases behind one Redis must each serve the
// ids their own store holds, or recorded progress never matches the catalog.
func TestListTopics_SharedCacheSeparateStores(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()

	storeA := newMemStore()
	storeB := newMemStore()
	storeB.idSpace = "b-"
	svcA := NewCatalogService(storeA, seedSet(), cache, discardLogger())
	svcB := NewCatalogService(storeB, seedSet(), cache, discardLogger())

	_, err := svcA.ListTopics(ctx)
	require.NoError(t, err)

	topicsB, err := svcB.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topicsB, 2)
	require.Len(t, storeB.topics, 2, "B's store is seeded")
	assert.Equal(t, storeB.topics[0].Problems[0].ID, topicsB[0].Problems[0].ID)

	// Progress on the served problem is visible to B's aggregator.
	progress := NewProgressService(storeB, storeB, discardLogger())
	first := topicsB[0].Problems[0]
	require.Equal(t, "Easy", first.Level)
	_, err = progress.Upsert(ctx, "user-1", first.ID, true)
	require.NoError(t, err)

	summary, err := progress.Summarize(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, summary.Easy)

	enriched, err := progress.Enrich(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, enriched, 1)
	require.NotNil(t, enriched[0].ProblemID.Problem)
	assert.Equal(t, first.Title, enriched[0].ProblemID.Problem.Title)
}

func TestListTopics_StoreResetWithinTTL(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := newFakeCache()
	svc := NewCatalogService(store, seedSet(), cache, discardLogger())

	before, err := svc.ListTopics(ctx)
	require.NoError(t, err)

	store.reset()

	after, err := svc.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, 2, store.seedInserts)
	assert.NotEqual(t, before[0].ID, after[0].ID)
	assert.Equal(t, store.topics[0].ID, after[0].ID)
}
