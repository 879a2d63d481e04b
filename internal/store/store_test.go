package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/wavering/internal/publish"
)

const image = "data:image/png;base64,iVBORw0KGgo="

type testStore interface {
	publish.Store
	Close() error
}

func stores(t *testing.T) map[string]testStore {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "waveforms.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]testStore{
		"sqlite": db,
		"memory": NewMemory(),
	}
}

func TestInsertAndList(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	email := "a@example.com"

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, err := s.Insert(ctx, nil, image, base)
			if err != nil {
				t.Fatal(err)
			}
			if first.Email != nil {
				t.Error("nil email stored as non-nil")
			}
			if _, err := s.Insert(ctx, &email, image, base.Add(time.Minute)); err != nil {
				t.Fatal(err)
			}
			// same timestamp as the first: ties break by id
			third, err := s.Insert(ctx, nil, image, base)
			if err != nil {
				t.Fatal(err)
			}

			list, err := s.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 3 {
				t.Fatalf("got %d records", len(list))
			}
			if list[0].Email == nil || *list[0].Email != email {
				t.Errorf("newest record email = %v", list[0].Email)
			}
			if list[1].ID != third.ID || list[2].ID != first.ID {
				t.Errorf("tie order = [%d %d], want [%d %d]", list[1].ID, list[2].ID, third.ID, first.ID)
			}
			if !list[2].CreatedAt.Equal(base) {
				t.Errorf("created_at = %v, want %v", list[2].CreatedAt, base)
			}
			if list[0].ImageData != image {
				t.Error("image data altered")
			}
		})
	}
}

func TestListEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			list, err := s.List(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 0 {
				t.Errorf("got %d records", len(list))
			}
		})
	}
}

func TestClosedStoreFails(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Close()
			if _, err := s.Insert(context.Background(), nil, image, time.Now()); err == nil {
				t.Error("insert on closed store succeeded")
			}
		})
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.db")
	ctx := context.Background()

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Insert(ctx, nil, image, time.Now()); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	n, err := db.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	m.Close()
	if _, err := m.List(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
