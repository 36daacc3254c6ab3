package ports

import "github.com/attid/MyMTLWalletBot-sub000/internal/domain"

// EventBus is an internal pub/sub for parsed webhook events.
type EventBus interface {
	Publish(event domain.WebhookEvent)
	Subscribe() (<-chan domain.WebhookEvent, func()) // returns channel and unsubscribe
}
