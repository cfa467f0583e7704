package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"tabletop/internal/domain"
)

// Registry holds the live matches of one process. Matches never share mutable state;
// the registry lock only guards the map.
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*Match
	deps    Deps
	seeds   *rand.Rand
}

// NewRegistry creates an empty registry. deps are shared by every match it creates;
// a non-nil deps.Bots.Rng only seeds the per-match generators.
func NewRegistry(deps Deps) *Registry {
	return &Registry{matches: make(map[string]*Match), deps: deps, seeds: deps.Bots.Rng}
}

// Create builds and registers a match. An empty cfg.ID gets a fresh UUID.
func (r *Registry) Create(cfg MatchConfig) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if _, exists := r.matches[cfg.ID]; exists {
		return nil, fmt.Errorf("match %s already exists", cfg.ID)
	}

	deps := r.deps
	if r.seeds != nil {
		deps.Bots.Rng = rand.New(rand.NewSource(r.seeds.Int63()))
	}
	m, err := NewMatch(cfg, deps)
	if err != nil {
		return nil, err
	}
	r.matches[cfg.ID] = m
	return m, nil
}

// Get returns a live match.
func (r *Registry) Get(matchID string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMatch, matchID)
	}
	return m, nil
}

// State returns the snapshot of a live match.
func (r *Registry) State(matchID string) (Snapshot, error) {
	m, err := r.Get(matchID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.State(), nil
}

// Submit routes an intent to its match.
func (r *Registry) Submit(ctx context.Context, matchID, userID string, in domain.Intent) ([]Event, error) {
	m, err := r.Get(matchID)
	if err != nil {
		return nil, err
	}
	return m.Submit(ctx, userID, in)
}

// TickAll runs the clock check of every live match and returns the events per match ID.
func (r *Registry) TickAll(ctx context.Context) map[string][]Event {
	r.mu.RLock()
	live := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		live = append(live, m)
	}
	r.mu.RUnlock()

	out := make(map[string][]Event)
	for _, m := range live {
		if events := m.Tick(ctx); len(events) > 0 {
			out[m.ID()] = events
		}
	}
	return out
}

// Drop discards a match without persisting it.
func (r *Registry) Drop(matchID, reason string) error {
	r.mu.Lock()
	m, ok := r.matches[matchID]
	delete(r.matches, matchID)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownMatch, matchID)
	}
	m.Drop(reason)
	return nil
}

// Reap removes matches that are terminal or dropped and returns how many went.
func (r *Registry) Reap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, m := range r.matches {
		if m.Done() {
			delete(r.matches, id)
			n++
		}
	}
	return n
}

// Len returns the number of live matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
