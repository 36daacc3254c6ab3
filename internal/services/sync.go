package services

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/nonce"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
)

// Synchronizer re-registers every tracked account with the upstream
// notifier. It is operator-triggered; it does not schedule itself.
type Synchronizer struct {
	subs        ports.SubscriptionStore
	client      ports.UpstreamClient
	nonces      *nonce.Manager
	reactionURL string
	batchSize   int
	limiter     *rate.Limiter
}

func NewSynchronizer(subs ports.SubscriptionStore, client ports.UpstreamClient, nonces *nonce.Manager, reactionURL string, batchSize int) *Synchronizer {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Synchronizer{
		subs:        subs,
		client:      client,
		nonces:      nonces,
		reactionURL: reactionURL,
		batchSize:   batchSize,
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
	}
}

// SyncAll re-subscribes every tracked account, pausing after each batch
// to respect the upstream's rate limits. A single account's failure is
// logged and does not abort the pass.
func (s *Synchronizer) SyncAll(ctx context.Context) error {
	accounts, err := s.subs.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list tracked accounts: %w", err)
	}

	var failed int
	for i, account := range accounts {
		if i > 0 && i%s.batchSize == 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		n := s.nonces.Next(ctx)
		if err := s.client.Subscribe(ctx, account, n, s.reactionURL); err != nil {
			failed++
			logger.L.Warn("subscribe failed", "account", account, "error", err)
			continue
		}
	}
	logger.L.Info("subscription sync finished", "total", len(accounts), "failed", failed)
	return nil
}
