// Package upstream is the HTTP adapter for the notifier API the relay
// registers subscriptions with and receives webhook callbacks from.
package upstream

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/signing"
)

// statusRetryInterval is how long a failed /api/status fetch is cached
// before another attempt; webhook handlers hit CounterpartyKey on every
// request and must not queue up behind a dead upstream.
const statusRetryInterval = 30 * time.Second

var errStatusPending = errors.New("counterparty key fetch already in progress")

// Client authenticates either by signing the canonical query string
// (signature mode) or with a preshared bearer token (token mode). The
// two modes are mutually exclusive per deployment.
type Client struct {
	baseURL     string
	authToken   string
	signer      *signing.Signer
	http        *http.Client
	statusRetry time.Duration

	mu           sync.Mutex
	counterparty ed25519.PublicKey
	lastAttempt  time.Time
	lastErr      error
}

func NewClient(baseURL string, signer *signing.Signer, authToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		signer:      signer,
		authToken:   authToken,
		http:        &http.Client{Timeout: 15 * time.Second},
		statusRetry: statusRetryInterval,
	}
}

// CounterpartyKey returns the upstream's signing key, fetched from
// /api/status on first use and cached after that. The fetch runs
// outside the lock, and a failure is cached for statusRetry so
// concurrent webhook handlers stay cheap during an upstream outage.
func (c *Client) CounterpartyKey(ctx context.Context) (ed25519.PublicKey, error) {
	c.mu.Lock()
	if c.counterparty != nil {
		key := c.counterparty
		c.mu.Unlock()
		return key, nil
	}
	if !c.lastAttempt.IsZero() && time.Since(c.lastAttempt) < c.statusRetry {
		err := c.lastErr
		c.mu.Unlock()
		if err == nil {
			err = errStatusPending
		}
		return nil, err
	}
	c.lastAttempt = time.Now()
	c.mu.Unlock()

	key, err := c.fetchStatusKey(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		return nil, err
	}
	c.counterparty = key
	c.lastErr = nil
	return key, nil
}

func (c *Client) fetchStatusKey(ctx context.Context) (ed25519.PublicKey, error) {
	var status struct {
		PublicKey string `json:"signature_public_key"`
	}
	if err := c.getJSON(ctx, "/api/status", "", &status); err != nil {
		return nil, fmt.Errorf("fetch upstream status: %w", err)
	}
	raw, err := hex.DecodeString(status.PublicKey)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("upstream status carries malformed public key %q", status.PublicKey)
	}
	logger.L.Info("upstream signing key fetched", "publicKey", status.PublicKey)
	return ed25519.PublicKey(raw), nil
}

// FetchNonce reads the remote nonce counter. Token deployments try the
// bearer-authenticated fetch first; only signature deployments sign.
func (c *Client) FetchNonce(ctx context.Context) (int64, error) {
	var auth string
	if c.authToken != "" {
		auth = c.authToken
	} else if c.signer != nil {
		auth = c.signer.Sign(signing.Canonicalize(nil))
	}

	var body struct {
		Nonce json.Number `json:"nonce"`
	}
	if err := c.getJSON(ctx, "/api/nonce", auth, &body); err != nil {
		return 0, err
	}
	n, err := body.Nonce.Int64()
	if err != nil {
		return 0, fmt.Errorf("malformed nonce %q: %w", body.Nonce, err)
	}
	return n, nil
}

// Subscribe registers one account for webhook callbacks.
func (c *Client) Subscribe(ctx context.Context, account string, nonceValue int64, reactionURL string) error {
	params := map[string]any{
		"account":      account,
		"nonce":        nonceValue,
		"reaction_url": reactionURL,
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/subscription", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorize(params))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", account, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("subscribe %s: upstream returned %d: %s", account, resp.StatusCode, snippet)
	}
	return nil
}

// ListSubscriptions returns the accounts currently registered upstream.
// The query string itself is what gets signed.
func (c *Client) ListSubscriptions(ctx context.Context, nonceValue int64) ([]domain.Subscription, error) {
	params := map[string]any{"nonce": nonceValue}
	query := signing.Canonicalize(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/subscription?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authorize(params))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list subscriptions: upstream returned %d", resp.StatusCode)
	}
	var subs []domain.Subscription
	if err := json.NewDecoder(resp.Body).Decode(&subs); err != nil {
		return nil, fmt.Errorf("list subscriptions: decode: %w", err)
	}
	return subs, nil
}

func (c *Client) authorize(params map[string]any) string {
	if c.authToken != "" {
		return c.authToken
	}
	if c.signer == nil {
		return ""
	}
	return c.signer.Sign(signing.Canonicalize(params))
}

func (c *Client) getJSON(ctx context.Context, path, auth string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: upstream returned %s", path, strconv.Itoa(resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
