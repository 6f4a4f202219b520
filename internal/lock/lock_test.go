package lock

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang-move-import-service/pkg/errors"

	"github.com/bsm/redislock"
)

type fakeObtainer struct {
	err  error
	lock *fakeLock
	keys []string
	ttl  time.Duration
	opt  *redislock.Options
}

func (f *fakeObtainer) Obtain(_ context.Context, key string, ttl time.Duration, opt *redislock.Options) (heldLock, error) {
	f.keys = append(f.keys, key)
	f.ttl = ttl
	f.opt = opt
	if f.err != nil {
		return nil, f.err
	}
	return f.lock, nil
}

type fakeLock struct {
	mu         sync.Mutex
	refreshes  int
	refreshErr error
	released   bool
}

func (l *fakeLock) Refresh(context.Context, time.Duration, *redislock.Options) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshes++
	return l.refreshErr
}

func (l *fakeLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = true
	return nil
}

func (l *fakeLock) state() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshes, l.released
}

func TestKey(t *testing.T) {
	if got := Key(42); got != "move-import:company:42" {
		t.Errorf("Expected move-import:company:42, got %s", got)
	}
}

func TestRedis_Acquire(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
	}{
		{"held by another import", redislock.ErrNotObtained, errors.CodeLockNotObtained},
		{"redis unreachable", fmt.Errorf("dial tcp: connection refused"), errors.CodeConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeObtainer{err: tt.err}
			locker := newRedis(fake, Config{}, nil)

			release, err := locker.Acquire(context.Background(), 7)
			if err == nil {
				t.Fatal("Expected error")
			}
			if release != nil {
				t.Error("Expected no release function on failure")
			}
			importErr, ok := errors.AsImportError(err)
			if !ok {
				t.Fatalf("Expected ImportError, got %T", err)
			}
			if importErr.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, importErr.Code)
			}
			if len(fake.keys) != 1 || fake.keys[0] != "move-import:company:7" {
				t.Errorf("Unexpected keys %v", fake.keys)
			}
			if fake.ttl != 30*time.Second {
				t.Errorf("Expected default ttl, got %s", fake.ttl)
			}
		})
	}
}

func TestRedis_RetryOptions(t *testing.T) {
	fake := &fakeObtainer{err: redislock.ErrNotObtained}

	newRedis(fake, Config{TTL: time.Minute}, nil).Acquire(context.Background(), 1)
	if fake.opt != nil {
		t.Error("Expected no retry strategy without retries")
	}

	newRedis(fake, Config{Retries: 3, Backoff: time.Millisecond}, nil).Acquire(context.Background(), 1)
	if fake.opt == nil || fake.opt.RetryStrategy == nil {
		t.Error("Expected a retry strategy")
	}
}

func TestRedis_RefreshWhileHeld(t *testing.T) {
	held := &fakeLock{}
	locker := newRedis(&fakeObtainer{lock: held}, Config{TTL: 20 * time.Millisecond}, nil)

	release, err := locker.Acquire(context.Background(), 3)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := held.state(); n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected the lock to be refreshed while held")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := release(context.Background()); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	refreshes, released := held.state()
	if !released {
		t.Error("Expected the lock to be released")
	}

	time.Sleep(50 * time.Millisecond)
	if n, _ := held.state(); n != refreshes {
		t.Errorf("Expected no refresh after release, got %d then %d", refreshes, n)
	}
}

func TestRedis_LostLock(t *testing.T) {
	held := &fakeLock{refreshErr: redislock.ErrNotObtained}
	locker := newRedis(&fakeObtainer{lock: held}, Config{TTL: 10 * time.Millisecond}, nil)

	release, err := locker.Acquire(context.Background(), 3)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := held.state(); n >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected a refresh attempt")
		}
		time.Sleep(5 * time.Millisecond)
	}

	err = release(context.Background())
	importErr, ok := errors.AsImportError(err)
	if !ok || importErr.Code != errors.CodeLockNotObtained {
		t.Fatalf("Expected lost lock error on release, got %v", err)
	}
	if _, released := held.state(); released {
		t.Error("Expected a lost lock not to be released")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		setting string
	}{
		{"valid", Config{Addr: "localhost:6379", TTL: time.Second}, ""},
		{"missing address", Config{TTL: time.Second}, "redis.addr"},
		{"address without port", Config{Addr: "localhost"}, "redis.addr"},
		{"negative retries", Config{Addr: "redis:6379", Retries: -1}, "redis.lock-retries"},
		{"negative ttl", Config{Addr: "redis:6379", TTL: -time.Second}, "redis.lock-ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.setting == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			importErr, ok := errors.AsImportError(err)
			if !ok {
				t.Fatalf("Expected ImportError, got %v", err)
			}
			if importErr.Context["setting"] != tt.setting {
				t.Errorf("Expected setting %s, got %v", tt.setting, importErr.Context["setting"])
			}
		})
	}
}

func TestLocal_Acquire(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, err := l.Acquire(ctx, 1)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := l.Acquire(ctx, 1); err == nil {
		t.Error("Expected second acquire of the same company to fail")
	}
	other, err := l.Acquire(ctx, 2)
	if err != nil {
		t.Fatalf("Expected other company to be free: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := l.Acquire(ctx, 1); err != nil {
		t.Errorf("Expected lock to be free after release: %v", err)
	}
	other(ctx)
}
