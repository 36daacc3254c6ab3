package services

import (
	"fmt"
	"strings"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
)

// TextRenderer is the default plain-text message renderer. Deployments
// with localization replace it behind the MessageRenderer port.
type TextRenderer struct{}

func NewTextRenderer() *TextRenderer { return &TextRenderer{} }

func (r *TextRenderer) Render(op *domain.Operation, walletPublicKey, userID string, perspective domain.Perspective) (string, error) {
	var b strings.Builder

	switch op.Kind {
	case domain.KindPayment:
		// A wallet matched only as the payer sees the debit side even
		// when the caller passed the default perspective.
		senderOnly := walletPublicKey != "" &&
			walletPublicKey == op.FromAccount && walletPublicKey != op.ForAccount
		if perspective == domain.PerspectiveDebit || senderOnly {
			fmt.Fprintf(&b, "Sent %s %s to %s", amount(op.Amount), op.AssetCode, short(op.ForAccount))
		} else {
			fmt.Fprintf(&b, "Received %s %s from %s", amount(op.Amount), op.AssetCode, short(op.FromAccount))
		}
	case domain.KindCreateAccount:
		fmt.Fprintf(&b, "Account %s funded with %s XLM by %s", short(op.ForAccount), amount(op.Amount), short(op.FromAccount))
	case domain.KindPathPaymentSend:
		fmt.Fprintf(&b, "Path payment: sent %s %s, received %s %s",
			amount(op.SentAmount), op.SentAsset, amount(op.ReceivedAmount), op.ReceivedAsset)
	case domain.KindPathPaymentReceive:
		fmt.Fprintf(&b, "Path payment: received %s %s for %s %s",
			amount(op.ReceivedAmount), op.ReceivedAsset, amount(op.SentAmount), op.SentAsset)
	case domain.KindTrade:
		fmt.Fprintf(&b, "Your offer matched: sold %s %s for %s %s",
			amount(op.SoldAmount), op.SoldAsset, amount(op.BoughtAmount), op.BoughtAsset)
	case domain.KindManageSellOffer:
		fmt.Fprintf(&b, "Sell offer #%d: %s %s at %s %s", op.OfferID, amount(op.Amount), op.SellingAsset, amount(op.Price), op.BuyingAsset)
	case domain.KindManageBuyOffer:
		fmt.Fprintf(&b, "Buy offer #%d: %s %s at %s %s", op.OfferID, amount(op.Amount), op.BuyingAsset, amount(op.Price), op.SellingAsset)
	case domain.KindManageData:
		if op.DataDeleted {
			fmt.Fprintf(&b, "Account data %q deleted", op.DataName)
		} else if op.DataValue != nil {
			fmt.Fprintf(&b, "Account data %q set to %q", op.DataName, *op.DataValue)
		} else {
			fmt.Fprintf(&b, "Account data %q changed", op.DataName)
		}
	default:
		// Kinds without a message template are silently dropped.
		return "", nil
	}

	if op.Memo != "" {
		fmt.Fprintf(&b, "\nMemo: %s", op.Memo)
	}
	return b.String(), nil
}

func amount(v float64) string {
	s := fmt.Sprintf("%.7f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func short(account string) string {
	if len(account) <= 12 {
		return account
	}
	return account[:4] + ".." + account[len(account)-4:]
}
