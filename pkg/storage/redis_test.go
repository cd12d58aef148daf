//go:build integration

package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedisContainer starts a Redis container for testing
func setupRedisContainer(t *testing.T) (*redis.RedisContainer, string) {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
		redis.WithSnapshotting(10, 1),
		redis.WithLogLevel(redis.LogLevelVerbose),
	)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	// Get the connection string and strip redis:// prefix
	endpoint, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	addr := endpoint
	if len(endpoint) > 8 && endpoint[:8] == "redis://" {
		addr = endpoint[8:]
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return redisContainer, addr
}

func sampleSnapshot(job string) Snapshot {
	return Snapshot{
		Job:         job,
		Metric:      "rmse",
		Comparison:  "e2r",
		GeneratedAt: time.Now().Truncate(time.Second),
		Leads:       []float64{1, 2, 3},
		LeadUnits:   "years",
		Skill:       []float64{0.3, 0.5, 0.8},
		LowCI:       []float64{0.2, 0.4, 0.6},
		HighCI:      []float64{0.4, 0.6, 1.0},
		PValue:      []float64{0.04, 0.04, 0.2},
		Baseline:    []float64{0.9, 1.3, 1.6},
	}
}

func TestRedisStore_NewRedisStore_Success(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisStore_NewRedisStore_InvalidAddr(t *testing.T) {
	_, err := NewRedisStore("invalid:99999", "", 0, 1*time.Minute)
	if err == nil {
		t.Fatal("expected error for invalid address, got nil")
	}
}

func TestRedisStore_NewRedisStore_EmptyAddr(t *testing.T) {
	_, err := NewRedisStore("", "", 0, 1*time.Minute)
	if err == nil {
		t.Fatal("expected error for empty address, got nil")
	}
	if err.Error() != "redis address cannot be empty" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRedisStore_NewRedisStore_InvalidDB(t *testing.T) {
	_, err := NewRedisStore("localhost:6379", "", -1, 1*time.Minute)
	if err == nil {
		t.Fatal("expected error for negative db number, got nil")
	}
	if err.Error() != "redis database number must be >= 0" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRedisStore_Put_Success(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), sampleSnapshot("decadal-sst")); err != nil {
		t.Errorf("Put failed: %v", err)
	}

	ctx := context.Background()
	exists, err := store.client.Exists(ctx, "driftcast:snapshot:decadal-sst").Result()
	if err != nil {
		t.Fatalf("failed to check key existence: %v", err)
	}
	if exists != 1 {
		t.Error("expected key to exist in Redis")
	}
}

func TestRedisStore_Put_EmptyJob(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	err = store.Put(context.Background(), Snapshot{Metric: "rmse"})
	if err == nil {
		t.Fatal("expected error for empty job, got nil")
	}
	if err.Error() != "job name required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRedisStore_Put_InvalidJobName(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	err = store.Put(context.Background(), Snapshot{Job: "invalid/job", Metric: "rmse"})
	if err == nil {
		t.Fatal("expected error for invalid job name, got nil")
	}
}

func TestRedisStore_GetLatest_RoundTrip(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	original := sampleSnapshot("decadal-sst")
	if err := store.Put(context.Background(), original); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, found, err := store.GetLatest(context.Background(), "decadal-sst")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot to be found")
	}

	if retrieved.Job != original.Job {
		t.Errorf("job mismatch: got %s, want %s", retrieved.Job, original.Job)
	}
	if retrieved.Metric != original.Metric || retrieved.Comparison != original.Comparison {
		t.Errorf("metric/comparison mismatch: got %s/%s", retrieved.Metric, retrieved.Comparison)
	}
	if retrieved.LeadUnits != original.LeadUnits {
		t.Errorf("lead units mismatch: got %s, want %s", retrieved.LeadUnits, original.LeadUnits)
	}
	for name, pair := range map[string][2][]float64{
		"leads":    {retrieved.Leads, original.Leads},
		"skill":    {retrieved.Skill, original.Skill},
		"low_ci":   {retrieved.LowCI, original.LowCI},
		"high_ci":  {retrieved.HighCI, original.HighCI},
		"p_value":  {retrieved.PValue, original.PValue},
		"baseline": {retrieved.Baseline, original.Baseline},
	} {
		got, want := pair[0], pair[1]
		if len(got) != len(want) {
			t.Fatalf("%s length mismatch: got %d, want %d", name, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s[%d] mismatch: got %f, want %f", name, i, got[i], want[i])
			}
		}
	}
}

func TestRedisStore_GetLatest_NotFound(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	snapshot, found, err := store.GetLatest(context.Background(), "nonexistent")
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if found {
		t.Error("expected snapshot not to be found")
	}
	if snapshot.Job != "" {
		t.Error("expected zero-value snapshot")
	}
}

func TestRedisStore_GetLatest_EmptyJob(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	_, found, err := store.GetLatest(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty job, got nil")
	}
	if found {
		t.Error("expected found=false")
	}
	if err.Error() != "job name required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	_, addr := setupRedisContainer(t)

	// Create store with very short TTL
	store, err := NewRedisStore(addr, "", 0, 2*time.Second)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), sampleSnapshot("decadal-sst")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, found, err := store.GetLatest(context.Background(), "decadal-sst")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot to be found immediately after Put")
	}

	time.Sleep(3 * time.Second)

	_, found, err = store.GetLatest(context.Background(), "decadal-sst")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if found {
		t.Error("expected snapshot to be expired")
	}
}

func TestRedisStore_Concurrency_MultiplePuts(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	var wg sync.WaitGroup
	numGoroutines := 10
	numPutsPerGoroutine := 10

	for i := range numGoroutines {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			for j := range numPutsPerGoroutine {
				snap := sampleSnapshot(fmt.Sprintf("job-%d-%d", goroutineID, j))
				if err := store.Put(context.Background(), snap); err != nil {
					t.Errorf("Put failed in goroutine %d: %v", goroutineID, err)
				}
			}
		}(i)
	}

	wg.Wait()

	for i := range numGoroutines {
		for j := range numPutsPerGoroutine {
			job := fmt.Sprintf("job-%d-%d", i, j)
			_, found, err := store.GetLatest(context.Background(), job)
			if err != nil {
				t.Errorf("GetLatest failed for %s: %v", job, err)
			}
			if !found {
				t.Errorf("snapshot not found for %s", job)
			}
		}
	}
}

func TestRedisStore_Close_Idempotent(t *testing.T) {
	_, addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("third Close failed: %v", err)
	}
}
