package ports

import (
	"context"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
)

// WalletStore resolves tracked wallets by their ledger public keys.
type WalletStore interface {
	FindActiveByPublicKeys(ctx context.Context, keys []string) ([]domain.Wallet, error)
}

// FilterStore lists a user's suppression filters.
type FilterStore interface {
	ByUser(ctx context.Context, userID string) ([]domain.Filter, error)
}

// SubscriptionStore persists the set of accounts tracked upstream.
type SubscriptionStore interface {
	ListAccounts(ctx context.Context) ([]string, error)
	Track(ctx context.Context, account string) error
	Untrack(ctx context.Context, account string) error
}

// NotificationLog keeps a record of delivered notifications.
type NotificationLog interface {
	Save(ctx context.Context, n domain.Notification) error
}
