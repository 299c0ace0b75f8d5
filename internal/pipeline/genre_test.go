package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/movie-ingest/internal/store"
)

func TestNameByCode(t *testing.T) {
	name, err := NameByCode(18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "DRAMA" {
		t.Fatalf("expected DRAMA, got %s", name)
	}

	if _, err := NameByCode(878); err != nil {
		t.Fatalf("unexpected error for 878: %v", err)
	}

	_, err = NameByCode(99999)
	var unmapped *UnmappedGenreError
	if !errors.As(err, &unmapped) {
		t.Fatalf("expected UnmappedGenreError, got %v", err)
	}
	if unmapped.Code != 99999 {
		t.Fatalf("expected code 99999 in error, got %d", unmapped.Code)
	}
}

func TestGenreCatalog_ResolveIdempotent(t *testing.T) {
	gw := store.NewMemoryGateway()
	catalog := NewGenreCatalog(gw)
	ctx := context.Background()

	first, err := catalog.Resolve(ctx, 18)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := catalog.Resolve(ctx, 18)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same genre row, got ids %s and %s", first.ID, second.ID)
	}
	if first.Name != "DRAMA" {
		t.Fatalf("expected DRAMA, got %s", first.Name)
	}
}

func TestGenreCatalog_ResolveReusesExistingRow(t *testing.T) {
	gw := store.NewMemoryGateway()
	ctx := context.Background()

	// Row persisted by a previous run.
	existing, err := gw.CreateGenre(ctx, "COMEDY")
	if err != nil {
		t.Fatalf("seed genre: %v", err)
	}

	catalog := NewGenreCatalog(gw)
	resolved, err := catalog.Resolve(ctx, 35)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != existing.ID {
		t.Fatalf("expected reuse of row %s, got %s", existing.ID, resolved.ID)
	}
}

func TestGenreCatalog_ConcurrentResolve(t *testing.T) {
	gw := store.NewMemoryGateway()
	catalog := NewGenreCatalog(gw)
	ctx := context.Background()

	const goroutines = 16
	ids := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := catalog.Resolve(ctx, 27)
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			ids[i] = g.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("concurrent resolution produced multiple rows: %v", ids)
		}
	}
}
