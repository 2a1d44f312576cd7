package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockTokenStore struct {
	deleteErr error
	deleted   int64
	active    int64
	seenNow   []time.Time
}

func (m *mockTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.seenNow = append(m.seenNow, now)
	return m.deleted, m.deleteErr
}

func (m *mockTokenStore) CountActive(ctx context.Context, now time.Time) (int64, error) {
	m.seenNow = append(m.seenNow, now)
	return m.active, nil
}

func TestTokenSweepJob_Run(t *testing.T) {
	store := &mockTokenStore{deleted: 3, active: 7}
	job := NewTokenSweepJob(store, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(store.seenNow) != 2 || !store.seenNow[0].Equal(fixed) || !store.seenNow[1].Equal(fixed) {
		t.Errorf("Expected both queries to use the same instant, got %v", store.seenNow)
	}
}

func TestTokenSweepJob_RunPropagatesStoreError(t *testing.T) {
	store := &mockTokenStore{deleteErr: errors.New("db down")}
	job := NewTokenSweepJob(store, nil)

	err := job.Run(context.Background())
	if err == nil || !errors.Is(err, store.deleteErr) {
		t.Fatalf("Expected wrapped store error, got %v", err)
	}
	if len(store.seenNow) != 1 {
		t.Error("Expected the count to be skipped after a failed delete")
	}
}

func TestTokenSweepJob_RunScheduledStopsWithContext(t *testing.T) {
	store := &mockTokenStore{}
	job := NewTokenSweepJob(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunScheduled(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected RunScheduled to return after cancel")
	}
}
