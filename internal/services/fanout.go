package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/attid/MyMTLWalletBot-sub000/internal/codec"
	"github.com/attid/MyMTLWalletBot-sub000/internal/dedup"
	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
)

// FanoutEngine consumes parsed webhook events, resolves which wallets
// are affected and hands rendered notifications to the delivery channel.
type FanoutEngine struct {
	bus      ports.EventBus
	seen     *dedup.Cache
	wallets  ports.WalletStore
	filters  ports.FilterStore
	renderer ports.MessageRenderer
	notifier ports.Notifier
	balances ports.BalanceCache
	history  ports.NotificationLog
}

func NewFanoutEngine(
	bus ports.EventBus,
	seen *dedup.Cache,
	wallets ports.WalletStore,
	filters ports.FilterStore,
	renderer ports.MessageRenderer,
	notifier ports.Notifier,
	balances ports.BalanceCache,
	history ports.NotificationLog,
) *FanoutEngine {
	return &FanoutEngine{
		bus:      bus,
		seen:     seen,
		wallets:  wallets,
		filters:  filters,
		renderer: renderer,
		notifier: notifier,
		balances: balances,
		history:  history,
	}
}

// Run consumes webhook events until the context is canceled. A single
// consumer goroutine processes events, so a dedup check and its insert
// can never interleave with another event's.
func (e *FanoutEngine) Run(ctx context.Context) {
	ch, unsubscribe := e.bus.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			e.Process(ctx, evt.Payload)
		}
	}
}

// Process runs one webhook payload through normalization, dedup,
// subscriber resolution, suppression and delivery. Failures are logged
// and terminal: an unparsable payload cannot be fixed by retrying.
func (e *FanoutEngine) Process(ctx context.Context, payload map[string]any) {
	resourceID := codec.ResourceID(payload)
	if resourceID == "" {
		logger.L.Warn("webhook payload resolves no account, skipping")
		return
	}

	decoded, err := codec.Decode(payload)
	if err != nil {
		logger.L.Error("payload normalization failed", "resource", resourceID, "error", err)
		return
	}

	op := decoded.Op
	if op != nil && op.ID != "" {
		if !e.seen.Ops.FirstSeen(op.ID) {
			return
		}
		if op.TransactionHash != "" {
			// Recorded only; cross-transaction dedup is not acted on yet.
			e.seen.Txs.FirstSeen(op.TransactionHash)
		}
		e.fanOut(ctx, op)
	}

	for i := range decoded.Trades {
		trade := &decoded.Trades[i]
		if trade.ForAccount == "" || !e.seen.Ops.FirstSeen(trade.ID) {
			continue
		}
		makers, err := e.wallets.FindActiveByPublicKeys(ctx, []string{trade.ForAccount})
		if err != nil {
			logger.L.Error("maker wallet lookup failed", "account", trade.ForAccount, "error", err)
			continue
		}
		for _, w := range makers {
			e.deliver(ctx, trade, w, domain.PerspectiveCredit)
		}
	}
}

func (e *FanoutEngine) fanOut(ctx context.Context, op *domain.Operation) {
	involved := involvedAccounts(op)
	if len(involved) == 0 {
		return
	}
	wallets, err := e.wallets.FindActiveByPublicKeys(ctx, involved)
	if err != nil {
		logger.L.Error("wallet lookup failed", "operationId", op.ID, "error", err)
		return
	}
	for _, w := range wallets {
		e.deliver(ctx, op, w, domain.PerspectiveCredit)
		// A self-payment credits and debits the same wallet; show both sides.
		if op.Kind == domain.KindPayment &&
			w.PublicKey == op.ForAccount && op.ForAccount == op.FromAccount {
			e.deliver(ctx, op, w, domain.PerspectiveDebit)
		}
	}
}

func involvedAccounts(op *domain.Operation) []string {
	set := make(map[string]struct{}, 3)
	for _, acct := range []string{op.ForAccount, op.FromAccount, op.Trustor} {
		if acct != "" {
			set[acct] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for acct := range set {
		out = append(out, acct)
	}
	return out
}

// deliver renders and sends one notification, unless a user filter
// suppresses it. Errors are isolated per recipient.
func (e *FanoutEngine) deliver(ctx context.Context, op *domain.Operation, w domain.Wallet, p domain.Perspective) {
	if e.suppressed(ctx, op, w) {
		logger.L.Debug("notification suppressed by filter", "userId", w.UserID, "operationId", op.ID)
		return
	}

	text, err := e.renderer.Render(op, w.PublicKey, w.UserID, p)
	if err != nil {
		logger.L.Error("render failed", "userId", w.UserID, "operationId", op.ID, "error", err)
		return
	}
	if text == "" {
		return
	}
	if err := e.notifier.Deliver(ctx, w.UserID, text, op.ID, w.ID); err != nil {
		logger.L.Error("delivery failed", "userId", w.UserID, "operationId", op.ID, "error", err)
		return
	}

	e.balances.Invalidate(w.UserID)
	if e.history != nil {
		rec := domain.Notification{
			ID:          uuid.NewString(),
			UserID:      w.UserID,
			WalletID:    w.ID,
			OperationID: op.ID,
			Text:        text,
			CreatedAt:   time.Now().UTC(),
		}
		if err := e.history.Save(ctx, rec); err != nil {
			logger.L.Warn("notification log write failed", "userId", w.UserID, "error", err)
		}
	}
}

func (e *FanoutEngine) suppressed(ctx context.Context, op *domain.Operation, w domain.Wallet) bool {
	filters, err := e.filters.ByUser(ctx, w.UserID)
	if err != nil {
		logger.L.Warn("filter lookup failed, delivering unfiltered", "userId", w.UserID, "error", err)
		return false
	}
	for _, f := range filters {
		if f.Matches(op, w.PublicKey) {
			return true
		}
	}
	return false
}
