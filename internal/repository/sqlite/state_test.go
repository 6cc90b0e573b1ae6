package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/tinkers/internal/apperror"
)

// newTestDB opens a fresh in-memory database that disappears with the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoad_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Load(context.Background(), "tinkers-snippets")
	if err == nil {
		t.Fatal("Load() should have returned an error for a missing namespace")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	payload := []byte(`{"state":{"snippets":[],"activeSnippetId":null},"version":0}`)
	if err := db.Save(ctx, "tinkers-snippets", payload); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := db.Load(ctx, "tinkers-snippets")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Load() = %s, want %s", got, payload)
	}
}

func TestSave_Overwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Save(ctx, "ns", []byte("v1")); err != nil {
		t.Fatalf("Save(v1) error = %v", err)
	}
	if err := db.Save(ctx, "ns", []byte("v2")); err != nil {
		t.Fatalf("Save(v2) error = %v", err)
	}

	got, err := db.Load(ctx, "ns")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Load() = %q, want %q", got, "v2")
	}

	var rows int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM state`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("state has %d rows, want 1", rows)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Save(ctx, "a", []byte("alpha")); err != nil {
		t.Fatalf("Save(a) error = %v", err)
	}
	if err := db.Save(ctx, "b", []byte("beta")); err != nil {
		t.Fatalf("Save(b) error = %v", err)
	}

	got, _ := db.Load(ctx, "a")
	if string(got) != "alpha" {
		t.Errorf("Load(a) = %q, want %q", got, "alpha")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tinkers.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Save(ctx, "ns", []byte("kept")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx, "ns")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "kept" {
		t.Errorf("Load() = %q, want %q", got, "kept")
	}
}
