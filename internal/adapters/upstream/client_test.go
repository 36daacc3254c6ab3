package upstream

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCounterpartyKeyCachesFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, "")

	if _, err := c.CounterpartyKey(context.Background()); err == nil {
		t.Fatal("status failure not reported")
	}
	if _, err := c.CounterpartyKey(context.Background()); err == nil {
		t.Fatal("cached failure not reported")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("status endpoint hit %d times within the retry window, want 1", got)
	}
}

func TestCounterpartyKeyRetriesAfterWindow(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"signature_public_key": %q}`, hex.EncodeToString(pub))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, "")
	c.statusRetry = time.Millisecond

	if _, err := c.CounterpartyKey(context.Background()); err == nil {
		t.Fatal("first fetch should fail")
	}
	time.Sleep(5 * time.Millisecond)

	key, err := c.CounterpartyKey(context.Background())
	if err != nil {
		t.Fatalf("retry after window: %v", err)
	}
	if !key.Equal(pub) {
		t.Error("fetched key does not match served key")
	}

	// Cached now; no further fetches.
	if _, err := c.CounterpartyKey(context.Background()); err != nil {
		t.Fatalf("cached key read: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("status endpoint hit %d times, want 2", got)
	}
}

func TestCounterpartyKeyRejectsMalformedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"signature_public_key": "not-hex"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, "")
	if _, err := c.CounterpartyKey(context.Background()); err == nil {
		t.Error("malformed key accepted")
	}
}
