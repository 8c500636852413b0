package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"bookstudio/api/internal/store"
)

func newTestCache(t *testing.T) *ChapterLists {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, time.Minute)
}

func TestPutGetRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	chapters := []store.Chapter{
		{ID: "ch-1", Title: "Intro", ChapterNo: 1, Status: "To Do", HasContent: true},
		{ID: "ch-2", Title: "Method", ChapterNo: 2, Status: "Drafting"},
	}
	if err := cache.Put(ctx, "project-1", chapters); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := cache.Get(ctx, "project-1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 2 || got[0].Title != "Intro" || !got[0].HasContent {
		t.Fatalf("unexpected cached chapters %+v", got)
	}
}

func TestGetMissesUnknownProject(t *testing.T) {
	cache := newTestCache(t)
	if _, ok := cache.Get(context.Background(), "nope"); ok {
		t.Fatalf("expected cache miss")
	}
}

func TestInvalidateDropsProjectAndUnscopedLists(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "project-1", []store.Chapter{{ID: "ch-1"}})
	_ = cache.Put(ctx, "project-2", []store.Chapter{{ID: "ch-2"}})
	_ = cache.Put(ctx, "", []store.Chapter{{ID: "ch-1"}, {ID: "ch-2"}})

	if err := cache.Invalidate(ctx, "project-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, ok := cache.Get(ctx, "project-1"); ok {
		t.Fatalf("expected project-1 dropped")
	}
	if _, ok := cache.Get(ctx, ""); ok {
		t.Fatalf("expected unscoped list dropped")
	}
	if _, ok := cache.Get(ctx, "project-2"); !ok {
		t.Fatalf("expected project-2 untouched")
	}
}

func TestInvalidateAllDropsEveryList(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_ = cache.Put(ctx, "project-1", []store.Chapter{{ID: "ch-1"}})
	_ = cache.Put(ctx, "project-2", []store.Chapter{{ID: "ch-2"}})

	if err := cache.InvalidateAll(ctx); err != nil {
		t.Fatalf("invalidate all: %v", err)
	}
	if _, ok := cache.Get(ctx, "project-1"); ok {
		t.Fatalf("expected project-1 dropped")
	}
	if _, ok := cache.Get(ctx, "project-2"); ok {
		t.Fatalf("expected project-2 dropped")
	}
}

func TestPutRespectsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewWithClient(client, time.Second)
	ctx := context.Background()

	if err := cache.Put(ctx, "project-1", []store.Chapter{{ID: "ch-1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, ok := cache.Get(ctx, "project-1"); ok {
		t.Fatalf("expected entry expired")
	}
}
