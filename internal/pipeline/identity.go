package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/example/movie-ingest/internal/store"
)

// PersonStore is the slice of the gateway the registry needs.
type PersonStore interface {
	FindPersonByExternalID(ctx context.Context, externalID int64) (store.Person, error)
	CreatePerson(ctx context.Context, p store.Person) (store.Person, error)
}

// IdentityRegistry admits each distinct person (by external id) into the
// shared-person pool exactly once per run. Admission hands back the shared
// row; it never affects per-movie membership, so a person admitted for movie A
// keeps their cast entry on movie B.
type IdentityRegistry struct {
	store PersonStore

	mu      sync.Mutex
	byExtID map[int64]store.Person
}

func NewIdentityRegistry(s PersonStore) *IdentityRegistry {
	return &IdentityRegistry{store: s, byExtID: make(map[int64]store.Person)}
}

// Admit returns the shared row for the person, creating the stored row on the
// first admission of this external id. The bool reports whether this call was
// the first admission. Check-and-register is atomic with respect to
// concurrent callers.
func (r *IdentityRegistry) Admit(ctx context.Context, p store.Person) (store.Person, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if shared, ok := r.byExtID[p.ExternalID]; ok {
		return shared, false, nil
	}

	shared, err := r.store.FindPersonByExternalID(ctx, p.ExternalID)
	if errors.Is(err, store.ErrNotFound) {
		shared, err = r.store.CreatePerson(ctx, p)
	}
	if err != nil {
		return store.Person{}, false, err
	}
	r.byExtID[p.ExternalID] = shared
	return shared, true, nil
}

// Admitted reports how many distinct people this run has admitted.
func (r *IdentityRegistry) Admitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byExtID)
}
