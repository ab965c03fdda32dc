package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sakif/practice-tracker/internal/apperror"
	"github.com/sakif/practice-tracker/internal/model"
)

func upsert(t *testing.T, db *DB, userID, problemID string, completed bool) *model.Progress {
	t.Helper()
	p := &model.Progress{UserID: userID, ProblemID: problemID, Completed: completed}
	if err := db.UpsertProgress(context.Background(), p); err != nil {
		t.Fatalf("UpsertProgress(%s, %s, %v) error = %v", userID, problemID, completed, err)
	}
	return p
}

func TestUpsertProgress_Creates(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "p1@example.com")

	p := upsert(t, db, user.ID, "problem-1", true)

	if p.ID == "" {
		t.Error("UpsertProgress() did not set ID")
	}
	if !p.Completed {
		t.Error("Completed = false, want true")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("UpsertProgress() did not set timestamps")
	}
}

func TestUpsertProgress_UpdatesInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "p2@example.com")

	first := upsert(t, db, user.ID, "problem-1", true)
	second := upsert(t, db, user.ID, "problem-1", false)

	if second.ID != first.ID {
		t.Errorf("ID changed across upserts: %q → %q", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v → %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Completed {
		t.Error("Completed = true after second upsert, want false")
	}

	all, err := db.ListProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListProgress() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(records) = %d, want exactly 1", len(all))
	}
	if all[0].Completed {
		t.Error("stored Completed = true, want false (last write wins)")
	}
}

func TestUpsertProgress_ConcurrentSamePairKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "race@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(completed bool) {
			defer wg.Done()
			p := &model.Progress{UserID: user.ID, ProblemID: "same", Completed: completed}
			if err := db.UpsertProgress(context.Background(), p); err != nil {
				t.Errorf("UpsertProgress() error = %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	all, err := db.ListProgress(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListProgress() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(records) = %d, want 1", len(all))
	}
}

// TestUpsertProgress_ConcurrentFileDatabase runs many writers through a
// multi-connection pool. None of them may fail on a locked database.
func TestUpsertProgress_ConcurrentFileDatabase(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "busy@example.com")

	const writers, problems = 64, 8

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &model.Progress{
				UserID:    user.ID,
				ProblemID: fmt.Sprintf("problem-%d", i%problems),
				Completed: i%3 != 0,
			}
			if err := db.UpsertProgress(ctx, p); err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		t.Fatalf("failed upserts: %d/%d, first: %v", len(failed), writers, failed[0])
	}

	all, err := db.ListProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListProgress() error = %v", err)
	}
	if len(all) != problems {
		t.Errorf("len(records) = %d, want %d", len(all), problems)
	}
}

func TestUpsertProgress_UnknownUserFails(t *testing.T) {
	tests := []struct {
		name string
		open func(t *testing.T) *DB
	}{
		{"memory", newTestDB},
		{"file", newFileDB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := tt.open(t)

			// Every pooled connection enforces the foreign key, so try a few.
			for i := range 4 {
				p := &model.Progress{UserID: "ghost", ProblemID: fmt.Sprintf("problem-%d", i), Completed: true}
				if err := db.UpsertProgress(context.Background(), p); err == nil {
					t.Fatal("UpsertProgress() should fail for a user that does not exist")
				}
			}
		})
	}
}

func TestListProgress_ScopedToUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	upsert(t, db, alice.ID, "a", true)
	upsert(t, db, alice.ID, "b", false)
	upsert(t, db, bob.ID, "a", true)

	got, err := db.ListProgress(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListProgress() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ProblemID != "a" || got[1].ProblemID != "b" {
		t.Errorf("order = [%s %s], want [a b]", got[0].ProblemID, got[1].ProblemID)
	}
}

func TestListProgress_NoRecords(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "none@example.com")

	got, err := db.ListProgress(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListProgress() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListProgress() = %v, want empty non-nil slice", got)
	}
}

func TestListCompletedProgress(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "done@example.com")

	upsert(t, db, user.ID, "a", true)
	upsert(t, db, user.ID, "b", false)
	upsert(t, db, user.ID, "c", true)
	upsert(t, db, user.ID, "c", false)

	got, err := db.ListCompletedProgress(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListCompletedProgress() error = %v", err)
	}
	if len(got) != 1 || got[0].ProblemID != "a" {
		t.Errorf("ListCompletedProgress() = %+v, want only problem a", got)
	}
}

func TestGetProgress_NotFound(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "nf@example.com")

	_, err := db.GetProgress(context.Background(), user.ID, "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProgress() error = %v, want ErrNotFound", err)
	}
}
