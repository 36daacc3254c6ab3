package domain

import "time"

// OperationKind classifies a normalized ledger operation.
type OperationKind string

const (
	KindPayment            OperationKind = "payment"
	KindCreateAccount      OperationKind = "create_account"
	KindPathPaymentSend    OperationKind = "path_payment_send"
	KindPathPaymentReceive OperationKind = "path_payment_receive"
	KindTrade              OperationKind = "trade"
	KindManageSellOffer    OperationKind = "manage_sell_offer"
	KindManageBuyOffer     OperationKind = "manage_buy_offer"
	KindManageData         OperationKind = "manage_data"
	KindOther              OperationKind = "other"
)

// Perspective is the side a notification is rendered from.
type Perspective string

const (
	PerspectiveCredit Perspective = "credit"
	PerspectiveDebit  Perspective = "debit"
)

// Operation is the canonical form of an upstream ledger operation.
// Immutable once produced by the codec. Monetary amounts default to 0
// and asset codes default to "XLM"; they are never left unset.
type Operation struct {
	ID              string        `json:"id"`
	Kind            OperationKind `json:"kind"`
	Timestamp       time.Time     `json:"timestamp"`
	FromAccount     string        `json:"fromAccount,omitempty"`
	ForAccount      string        `json:"forAccount,omitempty"`
	TransactionHash string        `json:"transactionHash,omitempty"`
	Memo            string        `json:"memo,omitempty"`
	Trustor         string        `json:"trustor,omitempty"`

	// payment / create_account / offers
	Amount    float64 `json:"amount"`
	AssetCode string  `json:"assetCode"`

	// path payments, both sides always populated
	SentAmount     float64 `json:"sentAmount,omitempty"`
	SentAsset      string  `json:"sentAsset,omitempty"`
	ReceivedAmount float64 `json:"receivedAmount,omitempty"`
	ReceivedAsset  string  `json:"receivedAsset,omitempty"`

	// trades
	SoldAmount   float64 `json:"soldAmount,omitempty"`
	SoldAsset    string  `json:"soldAsset,omitempty"`
	BoughtAmount float64 `json:"boughtAmount,omitempty"`
	BoughtAsset  string  `json:"boughtAsset,omitempty"`

	// offers
	OfferID      int64   `json:"offerId,omitempty"`
	Price        float64 `json:"price,omitempty"`
	SellingAsset string  `json:"sellingAsset,omitempty"`
	BuyingAsset  string  `json:"buyingAsset,omitempty"`

	// manage_data; a nil DataValue with DataDeleted set is an explicit
	// deletion, distinct from the field simply being absent.
	DataName    string  `json:"dataName,omitempty"`
	DataValue   *string `json:"dataValue,omitempty"`
	DataDeleted bool    `json:"dataDeleted,omitempty"`
}

// DisplayAmount is the per-kind amount projection used by filter
// evaluation only, never for rendering.
func (o *Operation) DisplayAmount() float64 {
	switch o.Kind {
	case KindPayment, KindCreateAccount, KindManageSellOffer, KindManageBuyOffer:
		return o.Amount
	case KindPathPaymentSend:
		return o.SentAmount
	case KindPathPaymentReceive:
		return o.ReceivedAmount
	case KindTrade:
		return o.SoldAmount
	default:
		return 0
	}
}

// DisplayAssetCode is the asset side of the filter projection.
func (o *Operation) DisplayAssetCode() string {
	switch o.Kind {
	case KindPayment, KindCreateAccount:
		return o.AssetCode
	case KindPathPaymentSend:
		return o.SentAsset
	case KindPathPaymentReceive:
		return o.ReceivedAsset
	case KindTrade:
		return o.SoldAsset
	case KindManageSellOffer, KindManageBuyOffer:
		return o.SellingAsset
	default:
		return "XLM"
	}
}

// Wallet is a user-owned tracked account.
type Wallet struct {
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	PublicKey string    `json:"publicKey" bson:"publicKey"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Filter suppresses notifications to a user. A notification is
// suppressed when every set field matches: public key unset-or-equal,
// asset code unset-or-equal, MinAmount strictly above the operation's
// display amount, and the operation kind equal.
type Filter struct {
	UserID    string        `json:"userId" bson:"userId"`
	PublicKey string        `json:"publicKey,omitempty" bson:"publicKey,omitempty"`
	AssetCode string        `json:"assetCode,omitempty" bson:"assetCode,omitempty"`
	MinAmount float64       `json:"minAmount" bson:"minAmount"`
	Kind      OperationKind `json:"operationKind" bson:"operationKind"`
}

// Matches reports whether this filter suppresses op for the given wallet.
func (f Filter) Matches(op *Operation, walletPublicKey string) bool {
	if f.PublicKey != "" && f.PublicKey != walletPublicKey {
		return false
	}
	if f.AssetCode != "" && f.AssetCode != op.DisplayAssetCode() {
		return false
	}
	if f.MinAmount <= op.DisplayAmount() {
		return false
	}
	return f.Kind == op.Kind
}

// Subscription is an account currently tracked with the upstream notifier.
type Subscription struct {
	Account   string    `json:"account" bson:"account"`
	CreatedAt time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// WebhookEvent carries one parsed webhook payload from the HTTP
// boundary to the fan-out engine.
type WebhookEvent struct {
	Payload    map[string]any
	ReceivedAt time.Time
}

// Notification is the stored record of a delivered message.
type Notification struct {
	ID          string    `json:"_id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	WalletID    string    `json:"walletId" bson:"walletId"`
	OperationID string    `json:"operationId" bson:"operationId"`
	Text        string    `json:"text" bson:"text"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}
