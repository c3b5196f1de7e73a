// Package statesync connects the processing state to the outside world:
// every state change is persisted to the key-value store and fanned out
// to the registered result-viewer tabs.
package statesync

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/pageproc/page-processor-back/internal/domain"
	"github.com/pageproc/page-processor-back/internal/state"
	"github.com/pageproc/page-processor-back/internal/store"
	"github.com/pageproc/page-processor-back/internal/tabs"
)

// StateKey is the KV record holding the current processing state.
const StateKey = "processing_state"

const defaultSyncTimeout = 5 * time.Second

type Syncer struct {
	kv       store.KV
	registry *tabs.Registry
	logger   *log.Logger
	timeout  time.Duration
}

func New(kv store.KV, registry *tabs.Registry, logger *log.Logger) *Syncer {
	return &Syncer{
		kv:       kv,
		registry: registry,
		logger:   logger,
		timeout:  defaultSyncTimeout,
	}
}

// Attach subscribes the syncer to the state store and returns the
// observer handle.
func (s *Syncer) Attach(stateStore *state.Store) state.ObserverHandle {
	return stateStore.AddObserver(s.onChange)
}

// onChange persists then broadcasts. A persistence failure is logged and
// must not block the broadcast: the viewer should still see the update
// even when the store is down.
func (s *Syncer) onChange(current *domain.ProcessingState) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if current == nil {
		if err := s.kv.Remove(ctx, StateKey); err != nil && s.logger != nil {
			s.logger.Printf("remove persisted state failed: %v", err)
		}
	} else {
		encoded, err := json.Marshal(current)
		if err == nil {
			err = s.kv.Set(ctx, StateKey, encoded)
		}
		if err != nil && s.logger != nil {
			s.logger.Printf("persist state failed url=%s err=%v", current.URL, err)
		}
	}

	s.registry.Broadcast(ctx, current)
}

// Load restores the persisted processing state, if any. Used at startup
// for diagnostics; an absent record is not an error.
func (s *Syncer) Load(ctx context.Context) (*domain.ProcessingState, error) {
	encoded, err := s.kv.Get(ctx, StateKey)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var current domain.ProcessingState
	if err := json.Unmarshal(encoded, &current); err != nil {
		return nil, err
	}
	return &current, nil
}
