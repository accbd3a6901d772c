package rediscache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/service/suppression"
)

// countingRepo records how often the underlying store is consulted.
type countingRepo struct {
	entries map[string]*domain.Suppression
	lookups int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{entries: make(map[string]*domain.Suppression)}
}

func (r *countingRepo) Put(_ context.Context, e *domain.Suppression) error {
	r.entries[e.EmailHash] = e
	return nil
}

func (r *countingRepo) IsSuppressed(_ context.Context, hash string) (bool, error) {
	r.lookups++
	_, ok := r.entries[hash]
	return ok, nil
}

func (r *countingRepo) Remove(_ context.Context, hash string) error {
	if _, ok := r.entries[hash]; !ok {
		return suppression.ErrNotFound
	}
	delete(r.entries, hash)
	return nil
}

func (r *countingRepo) List(_ context.Context, _ suppression.ListFilter) ([]domain.Suppression, int, error) {
	return nil, len(r.entries), nil
}

func (r *countingRepo) Count(_ context.Context) (int, error) {
	return len(r.entries), nil
}

func setupCache(t *testing.T) (*SuppressionCache, *countingRepo, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newCountingRepo()
	return New(repo, client), repo, client, mr
}

func inSet(t *testing.T, client *redis.Client, hash string) bool {
	t.Helper()
	ok, err := client.SIsMember(context.Background(), setKey, hash).Result()
	if err != nil {
		t.Fatalf("SIsMember: %v", err)
	}
	return ok
}

func TestPut_WritesThroughToCache(t *testing.T) {
	cache, repo, client, _ := setupCache(t)
	ctx := context.Background()

	err := cache.Put(ctx, &domain.Suppression{EmailHash: "hash-1", Reason: domain.ReasonBounceHard})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, ok := repo.entries["hash-1"]; !ok {
		t.Error("Put must reach the underlying repository")
	}
	if !inSet(t, client, "hash-1") {
		t.Error("Put must add the hash to the Redis set")
	}
}

func TestIsSuppressed_CacheHitSkipsStore(t *testing.T) {
	cache, repo, client, _ := setupCache(t)
	ctx := context.Background()

	if err := client.SAdd(ctx, setKey, "hash-1").Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ok, err := cache.IsSuppressed(ctx, "hash-1")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if !ok {
		t.Error("expected cache hit to report suppressed")
	}
	if repo.lookups != 0 {
		t.Errorf("store consulted %d times on a cache hit, want 0", repo.lookups)
	}
}

func TestIsSuppressed_ColdCacheFallsBackAndBackfills(t *testing.T) {
	cache, repo, client, _ := setupCache(t)
	ctx := context.Background()

	repo.entries["hash-2"] = &domain.Suppression{EmailHash: "hash-2"}

	ok, err := cache.IsSuppressed(ctx, "hash-2")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if !ok {
		t.Error("expected fallback to the store to report suppressed")
	}
	if repo.lookups != 1 {
		t.Errorf("store lookups = %d, want 1", repo.lookups)
	}
	if !inSet(t, client, "hash-2") {
		t.Error("positive verdict should be backfilled into the set")
	}
}

func TestIsSuppressed_NegativeVerdictCached(t *testing.T) {
	cache, repo, _, _ := setupCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cache.IsSuppressed(ctx, "unknown")
		if err != nil {
			t.Fatalf("IsSuppressed: %v", err)
		}
		if ok {
			t.Error("expected not suppressed")
		}
	}
	if repo.lookups != 1 {
		t.Errorf("store lookups = %d, want 1 (negative verdict should be cached)", repo.lookups)
	}
}

func TestRemove_EvictsFromCache(t *testing.T) {
	cache, _, client, _ := setupCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, &domain.Suppression{EmailHash: "hash-3"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Remove(ctx, "hash-3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if inSet(t, client, "hash-3") {
		t.Error("Remove must evict the hash from the Redis set")
	}
}

func TestCacheFailureDegradesToStore(t *testing.T) {
	cache, repo, _, mr := setupCache(t)
	ctx := context.Background()

	repo.entries["hash-4"] = &domain.Suppression{EmailHash: "hash-4"}
	mr.Close() // Redis gone

	ok, err := cache.IsSuppressed(ctx, "hash-4")
	if err != nil {
		t.Fatalf("IsSuppressed with dead Redis: %v", err)
	}
	if !ok {
		t.Error("dead Redis must degrade to the store, not to a miss")
	}
}
