package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/pageproc/page-processor-back/internal/domain"
)

func TestAppendAndGetByID(t *testing.T) {
	repo := NewMemoryResultsRepository()
	ctx := context.Background()

	if err := repo.Append(ctx, domain.StoredResult{
		ID:        "r1",
		URL:       "https://example.com",
		Title:     "Example",
		Summary:   "A summary.",
		KeyPoints: []string{"first", "second"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	result, err := repo.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if result.Title != "Example" || len(result.KeyPoints) != 2 {
		t.Fatalf("expected stored result, got %+v", result)
	}

	if _, err := repo.GetByID(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestListIsMostRecentFirst(t *testing.T) {
	repo := NewMemoryResultsRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.Append(ctx, domain.StoredResult{
			ID:  fmt.Sprintf("r%d", i),
			URL: fmt.Sprintf("https://example.com/%d", i),
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 results, got %d", len(listed))
	}
	if listed[0].ID != "r2" || listed[2].ID != "r0" {
		t.Fatalf("expected most-recent-first order, got %v %v %v", listed[0].ID, listed[1].ID, listed[2].ID)
	}
}

func TestAppendEvictsBeyondHistoryLimit(t *testing.T) {
	repo := NewMemoryResultsRepository()
	ctx := context.Background()

	for i := 0; i < HistoryLimit+5; i++ {
		if err := repo.Append(ctx, domain.StoredResult{
			ID:  fmt.Sprintf("r%d", i),
			URL: fmt.Sprintf("https://example.com/%d", i),
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != HistoryLimit {
		t.Fatalf("expected history capped at %d, got %d", HistoryLimit, len(listed))
	}
	if listed[0].ID != fmt.Sprintf("r%d", HistoryLimit+4) {
		t.Fatalf("expected newest entry first, got %q", listed[0].ID)
	}
	// The oldest entries fell off the end.
	for _, result := range listed {
		if result.ID == "r0" || result.ID == "r4" {
			t.Fatalf("expected evicted entry %q to be gone", result.ID)
		}
	}
}

func TestGetByURLReturnsMostRecent(t *testing.T) {
	repo := NewMemoryResultsRepository()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := repo.Append(ctx, domain.StoredResult{
			ID:      fmt.Sprintf("r%d", i),
			URL:     "https://example.com/article",
			Summary: fmt.Sprintf("summary %d", i),
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	result, err := repo.GetByURL(ctx, "https://example.com/article")
	if err != nil {
		t.Fatalf("get by url: %v", err)
	}
	if result.ID != "r1" {
		t.Fatalf("expected most recent result for url, got %q", result.ID)
	}

	if _, err := repo.GetByURL(ctx, "https://nowhere.example"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown url, got %v", err)
	}
}

func TestStoredResultsAreIsolatedFromCallers(t *testing.T) {
	repo := NewMemoryResultsRepository()
	ctx := context.Background()

	original := domain.StoredResult{ID: "r1", KeyPoints: []string{"first"}}
	if err := repo.Append(ctx, original); err != nil {
		t.Fatalf("append: %v", err)
	}
	original.KeyPoints[0] = "mutated"

	result, err := repo.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if result.KeyPoints[0] != "first" {
		t.Fatalf("expected stored key points isolated from caller mutation, got %q", result.KeyPoints[0])
	}

	result.KeyPoints[0] = "mutated again"
	again, err := repo.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if again.KeyPoints[0] != "first" {
		t.Fatalf("expected returned copy isolated, got %q", again.KeyPoints[0])
	}
}

func TestMemoryKVRoundTrip(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := kv.Set(ctx, "key", []byte("value")); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := kv.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "value" {
		t.Fatalf("expected stored value, got %q", value)
	}

	if err := kv.Remove(ctx, "key"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := kv.Get(ctx, "key"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}
