package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type tour struct {
	Changed time.Time `json:"changed"`
}

func TestGetOrSet_CachesValue(t *testing.T) {
	mem := NewMemory()
	c := New(mem, "hg:", zerolog.Nop())
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		return "secret", nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrSet(ctx, c, "pw:9735353315", time.Minute, load)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "secret" {
			t.Errorf("expected secret, got %q", v)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 load, got %d", calls)
	}
	if _, ok, _ := mem.Get(ctx, "hg:pw:9735353315"); !ok {
		t.Error("expected prefixed key in provider")
	}
}

func TestGetOrSet_ZeroTTLBypasses(t *testing.T) {
	mem := NewMemory()
	c := New(mem, "", zerolog.Nop())
	calls := 0
	load := func(context.Context) (int, error) { calls++; return calls, nil }

	GetOrSet(context.Background(), c, "k", 0, load)
	v, _ := GetOrSet(context.Background(), c, "k", 0, load)
	if v != 2 || calls != 2 {
		t.Errorf("expected two loads, got v=%d calls=%d", v, calls)
	}
	if mem.Len() != 0 {
		t.Error("expected nothing stored")
	}
}

func TestGetOrSet_LoadErrorNotCached(t *testing.T) {
	c := New(NewMemory(), "", zerolog.Nop())
	ctx := context.Background()

	_, err := GetOrSet(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
		return "", errors.New("odr down")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	v, err := GetOrSet(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("expected reload after error, got %q %v", v, err)
	}
}

func TestGetOrSet_StructRoundTrip(t *testing.T) {
	c := New(NewMemory(), "", zerolog.Nop())
	ctx := context.Background()
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	GetOrSet(ctx, c, "tour", time.Minute, func(context.Context) (tour, error) {
		return tour{Changed: when}, nil
	})
	got, err := GetOrSet(ctx, c, "tour", time.Minute, func(context.Context) (tour, error) {
		t.Fatal("load should not be called on a hit")
		return tour{}, nil
	})
	if err != nil || !got.Changed.Equal(when) {
		t.Errorf("unexpected cached value %v %v", got, err)
	}
}

type failingProvider struct{}

func (failingProvider) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis unreachable")
}
func (failingProvider) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis unreachable")
}
func (failingProvider) Remove(context.Context, string) error { return nil }

func TestGetOrSet_ProviderFailureFallsThrough(t *testing.T) {
	c := New(failingProvider{}, "", zerolog.Nop())
	v, err := GetOrSet(context.Background(), c, "k", time.Minute, func(context.Context) (string, error) {
		return "loaded", nil
	})
	if err != nil || v != "loaded" {
		t.Errorf("expected load result, got %q %v", v, err)
	}
}

func TestGetOrSet_SharesConcurrentLoads(t *testing.T) {
	c := New(NewMemory(), "", zerolog.Nop())
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			GetOrSet(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 1, nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected a single shared load, got %d", n)
	}
}

func TestCache_Remove(t *testing.T) {
	c := New(NewMemory(), "hg:", zerolog.Nop())
	ctx := context.Background()
	GetOrSet(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 1, nil })
	if err := c.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	v, _ := GetOrSet(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 2, nil })
	if v != 2 {
		t.Errorf("expected reload after Remove, got %d", v)
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"), time.Second)
	m.Set(ctx, "b", []byte("2"), time.Hour)

	now = now.Add(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("expected a to be expired")
	}
	if _, ok, _ := m.Get(ctx, "b"); !ok {
		t.Error("expected b to be present")
	}

	m.Set(ctx, "c", []byte("3"), time.Millisecond)
	now = now.Add(time.Second)
	m.purge()
	if m.Len() != 1 {
		t.Errorf("expected only b after purge, got %d entries", m.Len())
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not-a-url"); err == nil {
		t.Error("expected error for invalid redis url")
	}
}
