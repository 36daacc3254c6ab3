package ports

import (
	"context"
	"crypto/ed25519"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
)

// UpstreamClient talks to the upstream notifier API.
type UpstreamClient interface {
	// CounterpartyKey returns the upstream signing key, fetching it on
	// first use. Used to verify inbound webhook signatures.
	CounterpartyKey(ctx context.Context) (ed25519.PublicKey, error)
	// FetchNonce returns the remote's current nonce counter.
	FetchNonce(ctx context.Context) (int64, error)
	// Subscribe registers an account for webhook callbacks.
	Subscribe(ctx context.Context, account string, nonce int64, reactionURL string) error
	// ListSubscriptions returns the accounts currently registered upstream.
	ListSubscriptions(ctx context.Context, nonce int64) ([]domain.Subscription, error)
}
