package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// countingUsers counts GetByID calls against the wrapped repository.
type countingUsers struct {
	storage.UserRepository
	calls atomic.Int32
}

func (c *countingUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	c.calls.Add(1)
	return c.UserRepository.GetByID(ctx, id)
}

func TestUserCache_HitAndInvalidate(t *testing.T) {
	store := setupStore(t)
	user := createUser(t, store, "alice@example.com")
	repo := &countingUsers{UserRepository: store.Users()}
	cache := NewUserCache(repo, 16, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil || got.Email != user.Email {
			t.Fatalf("Get = %+v", got)
		}
	}
	if n := repo.calls.Load(); n != 1 {
		t.Errorf("store reads = %d, want 1", n)
	}

	cache.Invalidate(user.ID)
	if _, err := cache.Get(ctx, user.ID); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if n := repo.calls.Load(); n != 2 {
		t.Errorf("store reads after invalidate = %d, want 2", n)
	}
}

func TestUserCache_MissingUserNotCached(t *testing.T) {
	store := setupStore(t)
	cache := NewUserCache(store.Users(), 16, time.Minute)

	got, err := cache.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d, want 0", cache.Len())
	}
}

func TestUserCache_Expires(t *testing.T) {
	store := setupStore(t)
	user := createUser(t, store, "alice@example.com")
	repo := &countingUsers{UserRepository: store.Users()}
	cache := NewUserCache(repo, 16, 20*time.Millisecond)
	ctx := context.Background()

	cache.Get(ctx, user.ID)
	time.Sleep(50 * time.Millisecond)
	cache.Get(ctx, user.ID)

	if n := repo.calls.Load(); n != 2 {
		t.Errorf("store reads = %d, want 2 after expiry", n)
	}
}

func TestUserCache_ConcurrentGets(t *testing.T) {
	store := setupStore(t)
	user := createUser(t, store, "alice@example.com")
	cache := NewUserCache(store.Users(), 16, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.Get(context.Background(), user.ID)
			if err != nil || got == nil {
				t.Errorf("Get = %v, %v", got, err)
			}
		}()
	}
	wg.Wait()
}
