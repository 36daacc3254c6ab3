// Package codec normalizes upstream webhook payloads into canonical
// operations. It is pure: no I/O, no retries. An unparseable payload
// produces no operation at all, since remapping it cannot succeed later.
package codec

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/attid/MyMTLWalletBot-sub000/internal/domain"
	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
)

// Decoded is the result of normalizing one webhook payload: the main
// operation (nil when the payload carries none) plus any trade
// sub-operations synthesized from matched maker offers.
type Decoded struct {
	Op     *domain.Operation
	Trades []domain.Operation
}

// kindByType maps the upstream operation.type string to a canonical kind.
var kindByType = map[string]domain.OperationKind{
	"payment":                     domain.KindPayment,
	"create_account":              domain.KindCreateAccount,
	"path_payment_strict_send":    domain.KindPathPaymentSend,
	"path_payment_strict_receive": domain.KindPathPaymentReceive,
	"manage_sell_offer":           domain.KindManageSellOffer,
	"manage_offer":                domain.KindManageSellOffer,
	"manage_buy_offer":            domain.KindManageBuyOffer,
	"manage_data":                 domain.KindManageData,
}

// silentTypes are upstream kinds we intentionally do not notify about.
// Anything outside this list that is also not in kindByType is upstream
// protocol drift and gets a diagnostic log.
var silentTypes = map[string]struct{}{
	"set_options":                      {},
	"change_trust":                     {},
	"allow_trust":                      {},
	"set_trust_line_flags":             {},
	"account_merge":                    {},
	"bump_sequence":                    {},
	"create_claimable_balance":         {},
	"claim_claimable_balance":          {},
	"clawback":                         {},
	"clawback_claimable_balance":       {},
	"begin_sponsoring_future_reserves": {},
	"end_sponsoring_future_reserves":   {},
	"revoke_sponsorship":               {},
	"create_passive_sell_offer":        {},
	"liquidity_pool_deposit":           {},
	"liquidity_pool_withdraw":          {},
	"inflation":                        {},
	"invoke_host_function":             {},
	"extend_footprint_ttl":             {},
	"restore_footprint":                {},
}

// ResourceID resolves the account this payload concerns, trying the
// top-level subscription first and then the operation's own accounts.
func ResourceID(payload map[string]any) string {
	if id := str(payload, "subscription"); id != "" {
		return id
	}
	op := sub(payload, "operation")
	if op == nil {
		return ""
	}
	return str(op, "account", "source_account", "to", "destination")
}

// Decode normalizes one webhook payload. Any failure during mapping
// yields (nil, err); the caller logs and drops the delivery.
func Decode(payload map[string]any) (d *Decoded, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("operation mapping panicked: %v", r)
		}
	}()

	op := sub(payload, "operation")
	if op == nil {
		return nil, fmt.Errorf("payload has no operation object")
	}

	base := domain.Operation{
		ID:              str(op, "id"),
		Timestamp:       parseTime(str(op, "created_at")),
		TransactionHash: str(op, "transaction_hash"),
		FromAccount:     str(op, "from", "source_account"),
		Memo:            decodeMemo(op, payload),
		Trustor:         str(op, "trustor"),
		Amount:          0,
		AssetCode:       "XLM",
	}

	opType := str(op, "type")
	kind, known := kindByType[opType]
	if !known {
		kind = domain.KindOther
	}
	base.Kind = kind

	switch kind {
	case domain.KindPayment:
		base.ForAccount = str(op, "to", "destination")
		base.Amount = num(op, "amount")
		base.AssetCode = flatAsset(op, "asset_code", "asset_type")

	case domain.KindCreateAccount:
		base.ForAccount = str(op, "account", "destination")
		base.FromAccount = str(op, "funder", "source_account")
		base.Amount = num(op, "starting_balance")
		base.AssetCode = "XLM"

	case domain.KindPathPaymentSend:
		base.ForAccount = str(op, "to", "destination")
		base.SentAmount = num(op, "amount")
		// dest_amount is the actual received amount; dest_min is only a
		// guaranteed minimum and stands in when the actual is absent.
		if has(op, "dest_amount") {
			base.ReceivedAmount = num(op, "dest_amount")
		} else {
			base.ReceivedAmount = num(op, "dest_min")
		}
		base.SentAsset = firstAsset(op,
			[2]string{"source_asset_code", "source_asset_type"},
			[2]string{"asset_code", "asset_type"})
		base.ReceivedAsset = flatAsset(op, "dest_asset_code", "dest_asset_type")

	case domain.KindPathPaymentReceive:
		base.ForAccount = str(op, "to", "destination")
		base.ReceivedAmount = num(op, "amount")
		// source_max is the sender's ceiling, used when the actual
		// source_amount is absent.
		if has(op, "source_amount") {
			base.SentAmount = num(op, "source_amount")
		} else {
			base.SentAmount = num(op, "source_max")
		}
		base.ReceivedAsset = flatAsset(op, "asset_code", "asset_type")
		base.SentAsset = flatAsset(op, "source_asset_code", "source_asset_type")

	case domain.KindManageSellOffer, domain.KindManageBuyOffer:
		base.ForAccount = str(op, "source_account")
		base.Amount = num(op, "amount")
		base.Price = num(op, "price")
		base.OfferID = intOf(op, "offer_id")
		if base.OfferID == 0 {
			base.OfferID = intOf(op, "created_offer_id")
		}
		// Sell and buy offers nest their asset pairs under different
		// field names; the two shapes must not be conflated.
		if kind == domain.KindManageSellOffer {
			base.SellingAsset = nestedAsset(op["source_asset"])
			base.BuyingAsset = nestedAsset(op["asset"])
		} else {
			base.BuyingAsset = nestedAsset(op["buying_asset"])
			base.SellingAsset = nestedAsset(op["selling_asset"])
		}

	case domain.KindManageData:
		base.ForAccount = str(op, "source_account")
		base.DataName = str(op, "name")
		if raw, present := op["value"]; present {
			if raw == nil {
				base.DataDeleted = true
			} else if enc, ok := raw.(string); ok {
				base.DataValue = decodeDataValue(enc)
			}
		}

	case domain.KindOther:
		base.ForAccount = str(op, "to", "account", "trustor", "source_account")
		if _, silent := silentTypes[opType]; !silent {
			logger.L.Warn("unhandled upstream operation type", "type", opType, "operationId", base.ID)
		}
	}

	d = &Decoded{Op: &base}
	d.Trades = decodeTrades(op, &base)
	return d, nil
}

// decodeTrades synthesizes one trade operation per matched order-book
// maker embedded under operation.trades.
func decodeTrades(op map[string]any, parent *domain.Operation) []domain.Operation {
	raw, ok := op["trades"].([]any)
	if !ok {
		return nil
	}
	parentID := parent.ID
	if parentID == "" {
		parentID = parent.TransactionHash
	}
	var out []domain.Operation
	for i, item := range raw {
		t, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if str(t, "type") != "order_book" {
			continue
		}
		maker := str(t, "account", "seller", "maker")
		trade := domain.Operation{
			ID:              fmt.Sprintf("%s_t%d", parentID, i),
			Kind:            domain.KindTrade,
			Timestamp:       parent.Timestamp,
			TransactionHash: parent.TransactionHash,
			Memo:            parent.Memo,
			ForAccount:      maker,
			FromAccount:     parent.FromAccount,
			SoldAmount:      num(t, "sold_amount", "amount_sold"),
			SoldAsset:       tradeAsset(t, "sold"),
			BoughtAmount:    num(t, "bought_amount", "amount_bought"),
			BoughtAsset:     tradeAsset(t, "bought"),
			Amount:          0,
			AssetCode:       "XLM",
		}
		out = append(out, trade)
	}
	return out
}

// tradeAsset extracts one side of a trade: explicit <side>_asset_code,
// then native <side>_asset_type, then nested asset_<side>, then "?".
func tradeAsset(t map[string]any, side string) string {
	if code := str(t, side+"_asset_code"); code != "" {
		return code
	}
	if isNativeType(t[side+"_asset_type"]) {
		return "XLM"
	}
	if nested := sub(t, "asset_"+side); nested != nil {
		if code := str(nested, "asset_code"); code != "" {
			return code
		}
		if isNativeType(nested["asset_type"]) {
			return "XLM"
		}
	}
	return "?"
}

// flatAsset reads an asset from sibling code/type fields, defaulting to XLM.
func flatAsset(m map[string]any, codeKey, typeKey string) string {
	if code := str(m, codeKey); code != "" {
		return code
	}
	_ = m[typeKey] // native or absent both mean XLM
	return "XLM"
}

func firstAsset(m map[string]any, pairs ...[2]string) string {
	for _, p := range pairs {
		if code := str(m, p[0]); code != "" {
			return code
		}
	}
	return "XLM"
}

// nestedAsset reads an asset that may be a bare code string or an
// object with asset_code/asset_type fields.
func nestedAsset(v any) string {
	switch t := v.(type) {
	case string:
		if t == "" || t == "native" {
			return "XLM"
		}
		// "CODE:ISSUER" canonical form
		if idx := strings.IndexByte(t, ':'); idx > 0 {
			return t[:idx]
		}
		return t
	case map[string]any:
		if code := str(t, "asset_code", "code"); code != "" {
			return code
		}
		return "XLM"
	default:
		return "XLM"
	}
}

func isNativeType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "native" || t == "0"
	case float64:
		return t == 0
	default:
		return false
	}
}

// decodeDataValue base64-decodes a manage_data value to UTF-8 text,
// keeping the raw encoded string when decoding fails.
func decodeDataValue(enc string) *string {
	decoded, err := base64.StdEncoding.DecodeString(enc)
	if err != nil || !utf8.Valid(decoded) {
		return &enc
	}
	s := string(decoded)
	return &s
}

// decodeMemo renders the envelope memo. Text memos arriving as a
// Node-style byte buffer object are UTF-8 decoded; any other typed memo
// is rendered as `TYPE: "value"`.
func decodeMemo(op, payload map[string]any) string {
	memo := sub(op, "memo")
	if memo == nil {
		memo = sub(payload, "memo")
	}
	if memo == nil {
		if s := str(op, "memo"); s != "" {
			return s
		}
		return ""
	}
	memoType := str(memo, "type", "memo_type")
	value := memo["value"]
	if strings.EqualFold(memoType, "text") {
		if buf := bufferBytes(value); buf != nil {
			if utf8.Valid(buf) {
				return string(buf)
			}
			return "(binary data)"
		}
		if s, ok := value.(string); ok {
			return s
		}
	}
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%s: %q", strings.ToUpper(memoType), stringifyMemo(value))
}

// bufferBytes unpacks {"type":"Buffer","data":[...]} objects.
func bufferBytes(v any) []byte {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if str(m, "type") != "Buffer" {
		return nil
	}
	data, ok := m["data"].([]any)
	if !ok {
		return nil
	}
	buf := make([]byte, 0, len(data))
	for _, b := range data {
		f, ok := b.(float64)
		if !ok {
			return nil
		}
		buf = append(buf, byte(int(f)))
	}
	return buf
}

func stringifyMemo(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC()
	}
	return time.Now().UTC()
}

// --- loose-map traversal helpers ---

func sub(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	child, _ := m[key].(map[string]any)
	return child
}

// str returns the first non-empty string among keys. Numeric values are
// formatted, since the upstream is inconsistent about quoting.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// num parses the first present numeric field; amounts usually arrive as
// decimal strings. Missing or malformed values yield 0.
func num(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func intOf(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func has(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && v != nil
}
