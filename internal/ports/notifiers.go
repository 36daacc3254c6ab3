package ports

import (
	"context"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
)

// Notifier delivers a rendered notification to the end user.
type Notifier interface {
	Deliver(ctx context.Context, userID, text, operationID, walletID string) error
}

// MessageRenderer converts a canonical operation into human text.
// An empty string means the message should be suppressed.
type MessageRenderer interface {
	Render(op *domain.Operation, walletPublicKey, userID string, perspective domain.Perspective) (string, error)
}

// BalanceCache is signaled after each successful delivery so downstream
// balance reads are fresh.
type BalanceCache interface {
	Invalidate(userID string)
}
