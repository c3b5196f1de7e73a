package store

import (
	"context"
	"sync"

	"github.com/pageproc/page-processor-back/internal/domain"
)

// HistoryLimit caps the stored-result history; appending beyond it evicts
// the oldest entry.
const HistoryLimit = 50

// ResultsRepository persists completed job outputs as an immutable,
// bounded, most-recent-first history.
type ResultsRepository interface {
	Append(ctx context.Context, result domain.StoredResult) error
	GetByID(ctx context.Context, id string) (*domain.StoredResult, error)
	// GetByURL returns the most recent result for the URL when several
	// share it.
	GetByURL(ctx context.Context, url string) (*domain.StoredResult, error)
	List(ctx context.Context) ([]domain.StoredResult, error)
}

// MemoryResultsRepository stores results in memory for local development
// and tests.
type MemoryResultsRepository struct {
	mu      sync.RWMutex
	results []domain.StoredResult
}

func NewMemoryResultsRepository() *MemoryResultsRepository {
	return &MemoryResultsRepository{results: make([]domain.StoredResult, 0)}
}

func (r *MemoryResultsRepository) Append(_ context.Context, result domain.StoredResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append([]domain.StoredResult{cloneResult(result)}, r.results...)
	if len(r.results) > HistoryLimit {
		r.results = r.results[:HistoryLimit]
	}
	return nil
}

func (r *MemoryResultsRepository) GetByID(_ context.Context, id string) (*domain.StoredResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, result := range r.results {
		if result.ID == id {
			clone := cloneResult(result)
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryResultsRepository) GetByURL(_ context.Context, url string) (*domain.StoredResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, result := range r.results {
		if result.URL == url {
			clone := cloneResult(result)
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryResultsRepository) List(_ context.Context) ([]domain.StoredResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listed := make([]domain.StoredResult, 0, len(r.results))
	for _, result := range r.results {
		listed = append(listed, cloneResult(result))
	}
	return listed, nil
}

func cloneResult(result domain.StoredResult) domain.StoredResult {
	clone := result
	clone.KeyPoints = append([]string(nil), result.KeyPoints...)
	return clone
}
