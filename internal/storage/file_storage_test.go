package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gate-scraper/internal/cache"
	"gate-scraper/internal/domain"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func sampleEntry(tag string, storedAt time.Time) domain.CacheEntry {
	q := domain.Query{Tag: tag, Limit: 2}
	return domain.CacheEntry{
		Key:   q.Key(),
		Query: q,
		Items: []domain.Item{
			{Title: "Q1", Link: "https://gateoverflow.in/1/q1", Upvotes: 3, Views: 1200, User: "alice", PostedOn: "Jan 1"},
			{Title: "Q2", Link: "https://gateoverflow.in/2/q2", User: "bob", PostedOn: domain.DateNotAvailable},
		},
		StoredAt: storedAt.UTC().Truncate(time.Second),
	}
}

func TestFileStorePutGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	entry := sampleEntry("dbms", time.Now())

	if err := s.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0] != entry.Items[0] || got.Items[1] != entry.Items[1] {
		t.Errorf("items = %+v", got.Items)
	}
	if !got.StoredAt.Equal(entry.StoredAt) {
		t.Errorf("storedAt = %v, want %v", got.StoredAt, entry.StoredAt)
	}
	if got.Query.Tag != "dbms" {
		t.Errorf("query = %+v", got.Query)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	_, err := testStore(t).Get(context.Background(), domain.Query{Tag: "none", Limit: 1}.Key())
	if !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreOverwriteLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	entry := sampleEntry("dbms", time.Now())

	for i := 0; i < 3; i++ {
		entry.Items = entry.Items[:2-i%2]
		if err := s.Put(ctx, entry); err != nil {
			t.Fatalf("Put #%d: %v", i, err)
		}
	}

	files, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected exactly one file, got %d", len(files))
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s := testStore(t)
	for _, key := range []string{"", "../escape", "a/b", "x.json"} {
		if _, err := s.Get(context.Background(), key); err == nil || errors.Is(err, cache.ErrNotFound) {
			t.Errorf("Get(%q) err = %v, want invalid key error", key, err)
		}
	}
}

func TestFileStoreLatestCountClear(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Latest(ctx); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Latest on empty store: %v", err)
	}

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, tag := range []string{"dbms", "os", "cn"} {
		if err := s.Put(ctx, sampleEntry(tag, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Put %s: %v", tag, err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 3", n, err)
	}
	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Query.Tag != "cn" {
		t.Errorf("latest tag = %q, want cn", latest.Query.Tag)
	}

	if err := s.Delete(ctx, domain.Query{Tag: "os", Limit: 2}.Key()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, domain.Query{Tag: "os", Limit: 2}.Key()); err != nil {
		t.Fatalf("second Delete should succeed: %v", err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear on empty store: %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count after clear = %d", n)
	}
}
