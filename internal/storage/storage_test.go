package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/crate/internal/shared"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return store
}

func TestKeyValueStores(t *testing.T) {
	ctx := context.Background()
	stores := map[string]func(*testing.T) KeyValueStore{
		"file":   func(t *testing.T) KeyValueStore { return newFileStore(t) },
		"sqlite": func(t *testing.T) KeyValueStore { return newSQLiteStore(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("missing key", func(t *testing.T) {
				store := open(t)
				data, ok, err := store.Load(ctx, "tracks")
				if err != nil {
					t.Fatalf("missing key should not fail: %v", err)
				}
				if ok || data != nil {
					t.Errorf("expected absent snapshot, got ok=%v data=%q", ok, data)
				}
			})

			t.Run("store then load", func(t *testing.T) {
				store := open(t)
				if err := store.Store(ctx, "tracks", []byte(`{"a":1}`)); err != nil {
					t.Fatalf("store failed: %v", err)
				}

				data, ok, err := store.Load(ctx, "tracks")
				if err != nil || !ok {
					t.Fatalf("load failed: ok=%v err=%v", ok, err)
				}
				if !bytes.Equal(data, []byte(`{"a":1}`)) {
					t.Errorf("unexpected data %q", data)
				}
			})

			t.Run("overwrite", func(t *testing.T) {
				store := open(t)
				_ = store.Store(ctx, "albums", []byte("old"))
				if err := store.Store(ctx, "albums", []byte("new")); err != nil {
					t.Fatalf("overwrite failed: %v", err)
				}

				data, _, _ := store.Load(ctx, "albums")
				if string(data) != "new" {
					t.Errorf("expected new, got %q", data)
				}
			})

			t.Run("keys are independent", func(t *testing.T) {
				store := open(t)
				_ = store.Store(ctx, "tracks", []byte("t"))
				_ = store.Store(ctx, "albums", []byte("a"))

				data, _, _ := store.Load(ctx, "tracks")
				if string(data) != "t" {
					t.Errorf("expected t, got %q", data)
				}
			})

			t.Run("invalid key", func(t *testing.T) {
				store := open(t)
				for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
					if err := store.Store(ctx, key, []byte("x")); !errors.Is(err, shared.ErrInvalidArgument) {
						t.Errorf("key %q: expected ErrInvalidArgument, got %v", key, err)
					}
				}
			})
		})
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("writes json file without leftovers", func(t *testing.T) {
		store := newFileStore(t)
		if err := store.Store(ctx, "tracks", []byte("{}")); err != nil {
			t.Fatalf("store failed: %v", err)
		}

		entries, err := os.ReadDir(store.dir)
		if err != nil {
			t.Fatalf("failed to list dir: %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != "tracks.json" {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("expected only tracks.json, got %v", names)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newFileStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if err := store.Store(cctx, "tracks", []byte("{}")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestSQLiteStoreUpdatedAt(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	ts, err := store.UpdatedAt(ctx, "tracks")
	if err != nil || !ts.IsZero() {
		t.Fatalf("expected zero time for missing key, got %v %v", ts, err)
	}

	_ = store.Store(ctx, "tracks", []byte("{}"))
	ts, err = store.UpdatedAt(ctx, "tracks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.IsZero() {
		t.Error("expected update time after store")
	}
}
