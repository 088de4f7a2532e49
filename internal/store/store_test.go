package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gcalsync/internal/component"
	"gcalsync/internal/model"
)

func testItem(id string) *model.Item {
	c := component.New(component.NameEvent)
	c.Add("uid", component.Text(id+"@google.com"))
	c.Add("summary", component.Text("Item "+id))
	c.Add("dtstart", component.Time(component.DateTime{
		Time: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}))
	return &model.Item{
		ID:        id,
		Title:     "Item " + id,
		Kind:      model.KindEvent,
		Meta:      model.Meta{ETag: `"etag-` + id + `"`},
		Component: c,
	}
}

func TestUpsertLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	if err := s.Upsert(ctx, testItem("a")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	item, err := s.Load("a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if item.ID != "a" || item.Title != "Item a" {
		t.Errorf("loaded item = %+v", item)
	}
	if item.Meta.ETag != `"etag-a"` {
		t.Errorf("etag = %q, want restored from index", item.Meta.ETag)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	if err := s.Upsert(ctx, testItem("a")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() after remove = %d, want 0", got)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if err := s.Remove(ctx, "never-stored"); err != nil {
		t.Errorf("Remove of unknown id: %v", err)
	}
	if _, err := s.Load("a"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load after remove = %v, want not-exist", err)
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Upsert(ctx, testItem("a")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, testItem("b")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Len(); got != 2 {
		t.Errorf("Len() after reopen = %d, want 2", got)
	}
	if _, err := reopened.Load("b"); err != nil {
		t.Errorf("Load after reopen: %v", err)
	}
}

func TestCorruptIndexIsDiscarded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFile), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open over corrupt index: %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want empty after discard", got)
	}
	if err := s.Upsert(context.Background(), testItem("a")); err != nil {
		t.Errorf("Upsert after discard: %v", err)
	}
}

func TestPayloadPermissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Upsert(context.Background(), testItem("a")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "a.ics"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("payload mode = %o, want 0600", got)
	}
}

func TestFileNameSanitized(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Upsert(context.Background(), testItem("../evil/id")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := fileName("../evil/id"); filepath.Dir(got) != "." {
		t.Errorf("fileName = %q, escapes the store directory", got)
	}
}
