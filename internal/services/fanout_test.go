package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/attid/MyMTLWalletBot-sub000/internal/dedup"
	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
)

type mockWalletStore struct {
	wallets []domain.Wallet
}

func (m *mockWalletStore) FindActiveByPublicKeys(ctx context.Context, keys []string) ([]domain.Wallet, error) {
	var out []domain.Wallet
	for _, w := range m.wallets {
		for _, k := range keys {
			if w.PublicKey == k {
				out = append(out, w)
			}
		}
	}
	return out, nil
}

type mockFilterStore struct {
	filters map[string][]domain.Filter
}

func (m *mockFilterStore) ByUser(ctx context.Context, userID string) ([]domain.Filter, error) {
	return m.filters[userID], nil
}

type delivery struct {
	userID      string
	text        string
	operationID string
	walletID    string
}

type mockNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (m *mockNotifier) Deliver(ctx context.Context, userID, text, operationID, walletID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deliveries = append(m.deliveries, delivery{userID, text, operationID, walletID})
	return nil
}

type mockBalanceCache struct {
	invalidated []string
}

func (m *mockBalanceCache) Invalidate(userID string) {
	m.invalidated = append(m.invalidated, userID)
}

// perspectiveRenderer embeds the perspective in the text so tests can
// tell credit and debit deliveries apart.
type perspectiveRenderer struct{}

func (perspectiveRenderer) Render(op *domain.Operation, walletPublicKey, userID string, p domain.Perspective) (string, error) {
	return string(op.Kind) + "/" + string(p), nil
}

func newTestEngine(wallets *mockWalletStore, filters *mockFilterStore, notifier *mockNotifier, balances *mockBalanceCache) *FanoutEngine {
	return NewFanoutEngine(nil, dedup.New(64), wallets, filters, perspectiveRenderer{}, notifier, balances, nil)
}

func paymentPayload(id, to, from, amount string) map[string]any {
	return map[string]any{
		"operation": map[string]any{
			"id":     id,
			"type":   "payment",
			"to":     to,
			"from":   from,
			"amount": amount,
		},
	}
}

func TestProcessDeliversToMatchedWallet(t *testing.T) {
	wallets := &mockWalletStore{wallets: []domain.Wallet{
		{ID: "w1", UserID: "100", PublicKey: "GDEST", Active: true},
	}}
	notifier := &mockNotifier{}
	balances := &mockBalanceCache{}
	e := newTestEngine(wallets, &mockFilterStore{}, notifier, balances)

	e.Process(context.Background(), paymentPayload("op-1", "GDEST", "GSRC", "10"))

	if len(notifier.deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(notifier.deliveries))
	}
	d := notifier.deliveries[0]
	if d.userID != "100" || d.operationID != "op-1" || d.walletID != "w1" {
		t.Errorf("delivery = %+v", d)
	}
	if len(balances.invalidated) != 1 || balances.invalidated[0] != "100" {
		t.Errorf("balance cache invalidations = %v", balances.invalidated)
	}
}

func TestProcessDedupsRepeatedOperation(t *testing.T) {
	wallets := &mockWalletStore{wallets: []domain.Wallet{
		{ID: "w1", UserID: "100", PublicKey: "GDEST", Active: true},
	}}
	notifier := &mockNotifier{}
	e := newTestEngine(wallets, &mockFilterStore{}, notifier, &mockBalanceCache{})

	payload := paymentPayload("op-dup", "GDEST", "GSRC", "10")
	e.Process(context.Background(), payload)
	e.Process(context.Background(), payload)

	if len(notifier.deliveries) != 1 {
		t.Fatalf("deliveries = %d, want exactly 1 for a repeated operation id", len(notifier.deliveries))
	}
}

func TestSelfPaymentDeliversBothPerspectives(t *testing.T) {
	wallets := &mockWalletStore{wallets: []domain.Wallet{
		{ID: "w1", UserID: "100", PublicKey: "GSELF", Active: true},
	}}
	notifier := &mockNotifier{}
	e := newTestEngine(wallets, &mockFilterStore{}, notifier, &mockBalanceCache{})

	e.Process(context.Background(), paymentPayload("op-self", "GSELF", "GSELF", "5"))

	if len(notifier.deliveries) != 2 {
		t.Fatalf("deliveries = %d, want 2 for self-payment", len(notifier.deliveries))
	}
	texts := map[string]bool{}
	for _, d := range notifier.deliveries {
		texts[d.text] = true
	}
	if !texts["payment/credit"] || !texts["payment/debit"] {
		t.Errorf("perspectives = %v, want one credit and one debit", texts)
	}
}

func TestFilterSuppression(t *testing.T) {
	wallets := &mockWalletStore{wallets: []domain.Wallet{
		{ID: "w1", UserID: "100", PublicKey: "GDEST", Active: true},
	}}
	filters := &mockFilterStore{filters: map[string][]domain.Filter{
		"100": {{UserID: "100", AssetCode: "XLM", MinAmount: 10, Kind: domain.KindPayment}},
	}}
	notifier := &mockNotifier{}
	e := newTestEngine(wallets, filters, notifier, &mockBalanceCache{})

	// Below threshold: suppressed.
	e.Process(context.Background(), paymentPayload("op-small", "GDEST", "GSRC", "5"))
	if len(notifier.deliveries) != 0 {
		t.Fatalf("small payment delivered despite filter")
	}

	// Above threshold: delivered.
	e.Process(context.Background(), paymentPayload("op-big", "GDEST", "GSRC", "50"))
	if len(notifier.deliveries) != 1 {
		t.Fatalf("deliveries = %d, want large payment through", len(notifier.deliveries))
	}
}

func TestFilterOtherKindDoesNotSuppress(t *testing.T) {
	wallets := &mockWalletStore{wallets: []domain.Wallet{
		{ID: "w1", UserID: "100", PublicKey: "GNEW", Active: true},
	}}
	filters := &mockFilterStore{filters: map[string][]domain.Filter{
		"100": {{UserID: "100", MinAmount: 1000, Kind: domain.KindPayment}},
	}}
	notifier := &mockNotifier{}
	e := newTestEngine(wallets, filters, notifier, &mockBalanceCache{})

	e.Process(context.Background(), map[string]any{
		"operation": map[string]any{
			"id": "op-ca", "type": "create_account",
			"account": "GNEW", "funder": "GF", "starting_balance": "2",
		},
	})
	if len(notifier.deliveries) != 1 {
		t.Fatalf("payment filter suppressed a create_account")
	}
}

func TestTradeMakerFanout(t *testing.T) {
	wallets := &mockWalletStore{wallets: []domain.Wallet{
		{ID: "w-maker", UserID: "200", PublicKey: "GMAKER", Active: true},
	}}
	notifier := &mockNotifier{}
	e := newTestEngine(wallets, &mockFilterStore{}, notifier, &mockBalanceCache{})

	e.Process(context.Background(), map[string]any{
		"operation": map[string]any{
			"id": "op-offer", "type": "manage_sell_offer", "source_account": "GTAKER",
			"trades": []any{
				map[string]any{
					"type": "order_book", "account": "GMAKER",
					"sold_amount": "3", "sold_asset_code": "MTL",
					"bought_amount": "6", "bought_asset_type": "native",
				},
			},
		},
	})

	if len(notifier.deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1 maker notification", len(notifier.deliveries))
	}
	if notifier.deliveries[0].userID != "200" {
		t.Errorf("maker delivery user = %q", notifier.deliveries[0].userID)
	}
	if notifier.deliveries[0].operationID != "op-offer_t0" {
		t.Errorf("trade operation id = %q", notifier.deliveries[0].operationID)
	}
}

func TestDeliveryErrorDoesNotBlockBatch(t *testing.T) {
	wallets := &mockWalletStore{wallets: []domain.Wallet{
		{ID: "w1", UserID: "100", PublicKey: "GDEST", Active: true},
		{ID: "w2", UserID: "101", PublicKey: "GSRC", Active: true},
	}}
	notifier := &mockNotifier{err: errors.New("chat unreachable")}
	balances := &mockBalanceCache{}
	e := newTestEngine(wallets, &mockFilterStore{}, notifier, balances)

	e.Process(context.Background(), paymentPayload("op-err", "GDEST", "GSRC", "10"))

	if len(balances.invalidated) != 0 {
		t.Errorf("balance invalidated despite failed delivery: %v", balances.invalidated)
	}
}

func TestProcessSkipsPayloadWithoutResource(t *testing.T) {
	notifier := &mockNotifier{}
	e := newTestEngine(&mockWalletStore{}, &mockFilterStore{}, notifier, &mockBalanceCache{})

	e.Process(context.Background(), map[string]any{"unrelated": true})
	if len(notifier.deliveries) != 0 {
		t.Errorf("delivered for an unresolvable payload")
	}
}
