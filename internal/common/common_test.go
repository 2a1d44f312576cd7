package common

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"player@x.com": "p***@x.com",
		"a@x.com":      "***@x.com",
		"no-at-sign":   "***",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCacheService_GetOrSet(t *testing.T) {
	cs := NewCacheService(time.Minute, time.Minute)

	calls := 0
	loader := func() (any, error) {
		calls++
		return "club-1", nil
	}
	for i := 0; i < 3; i++ {
		v, err := cs.GetOrSet("ref:GOOD", time.Minute, loader)
		if err != nil || v != "club-1" {
			t.Fatalf("Unexpected result %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected loader to run once, ran %d times", calls)
	}

	cs.Delete("ref:GOOD")
	if _, ok := cs.Get("ref:GOOD"); ok {
		t.Error("Expected entry to be gone after Delete")
	}
}

func TestCacheService_GetOrSetDoesNotCacheErrors(t *testing.T) {
	cs := NewCacheService(time.Minute, time.Minute)
	boom := errors.New("db down")

	if _, err := cs.GetOrSet("k", time.Minute, func() (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Expected loader error, got %v", err)
	}
	if cs.ItemCount() != 0 {
		t.Error("Expected failed loads to stay out of the cache")
	}
}

func TestCacheService_GetOrSetCoalescesLoads(t *testing.T) {
	cs := NewCacheService(time.Minute, time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func() (any, error) {
		calls.Add(1)
		<-release
		return "keys", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := cs.GetOrSet("jwks", time.Minute, loader); err != nil || v != "keys" {
				t.Errorf("Unexpected result %v, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected one load for concurrent callers, got %d", calls.Load())
	}
}
