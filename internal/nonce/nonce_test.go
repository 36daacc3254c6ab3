package nonce

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
)

type fakeClient struct {
	nonce   int64
	err     error
	fetches int
}

func (f *fakeClient) CounterpartyKey(ctx context.Context) (ed25519.PublicKey, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) FetchNonce(ctx context.Context) (int64, error) {
	f.fetches++
	return f.nonce, f.err
}

func (f *fakeClient) Subscribe(ctx context.Context, account string, nonce int64, reactionURL string) error {
	return nil
}

func (f *fakeClient) ListSubscriptions(ctx context.Context, nonce int64) ([]domain.Subscription, error) {
	return nil, nil
}

func TestNextSeedsFromRemoteWithMargin(t *testing.T) {
	m := NewManager(&fakeClient{nonce: 500})
	got := m.Next(context.Background())
	if got != 500+InitMargin+1 {
		t.Errorf("first nonce = %d, want %d", got, 500+InitMargin+1)
	}
}

func TestNextFallsBackToWallClock(t *testing.T) {
	before := time.Now().UnixMilli()
	m := NewManager(&fakeClient{err: errors.New("network unreachable")})
	got := m.Next(context.Background())
	if got <= before {
		t.Errorf("fallback nonce %d not derived from wall clock (now=%d)", got, before)
	}
}

func TestRemoteFetchedOnce(t *testing.T) {
	client := &fakeClient{nonce: 10}
	m := NewManager(client)
	m.Next(context.Background())
	m.Next(context.Background())
	m.Next(context.Background())
	if client.fetches != 1 {
		t.Errorf("remote fetched %d times, want 1", client.fetches)
	}
}

func TestNextIsStrictlyIncreasingUnderConcurrency(t *testing.T) {
	const n = 200
	m := NewManager(&fakeClient{nonce: 1})

	results := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Next(context.Background())
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i := 1; i < n; i++ {
		if results[i] == results[i-1] {
			t.Fatalf("duplicate nonce %d issued", results[i])
		}
	}
	if results[n-1]-results[0] != n-1 {
		t.Errorf("nonces not contiguous: span %d for %d calls", results[n-1]-results[0], n)
	}
}
