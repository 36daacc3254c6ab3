package repository

import (
	"context"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
)

// Noop backs the stores in test mode, where no database may be dialed.
// Every lookup is empty and every write succeeds silently.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) Wallets() ports.WalletStore { return noopWallets{} }

func (Noop) Filters() ports.FilterStore { return noopFilters{} }

func (Noop) Subscriptions() ports.SubscriptionStore { return noopSubscriptions{} }

func (Noop) Notifications() ports.NotificationLog { return noopNotifications{} }

func (Noop) Close(ctx context.Context) error { return nil }

type noopWallets struct{}

func (noopWallets) FindActiveByPublicKeys(ctx context.Context, keys []string) ([]domain.Wallet, error) {
	return nil, nil
}

type noopFilters struct{}

func (noopFilters) ByUser(ctx context.Context, userID string) ([]domain.Filter, error) {
	return nil, nil
}

type noopSubscriptions struct{}

func (noopSubscriptions) ListAccounts(ctx context.Context) ([]string, error) { return nil, nil }
func (noopSubscriptions) Track(ctx context.Context, account string) error    { return nil }
func (noopSubscriptions) Untrack(ctx context.Context, account string) error  { return nil }

type noopNotifications struct{}

func (noopNotifications) Save(ctx context.Context, n domain.Notification) error { return nil }
