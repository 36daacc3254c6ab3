package eventbus

import (
	"sync"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
)

type inMemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[chan domain.WebhookEvent]struct{}
}

func NewInMemoryEventBus() ports.EventBus {
	return &inMemoryEventBus{
		subscribers: make(map[chan domain.WebhookEvent]struct{}),
	}
}

func (b *inMemoryEventBus) Publish(event domain.WebhookEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			logger.L.Warn("event bus subscriber is saturated, dropping webhook event")
		}
	}
}

func (b *inMemoryEventBus) Subscribe() (<-chan domain.WebhookEvent, func()) {
	ch := make(chan domain.WebhookEvent, 32)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}
	return ch, unsubscribe
}
