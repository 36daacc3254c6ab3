// Package signing implements the request authentication protocol shared
// with the upstream notifier: a deterministic canonical query string,
// ed25519 signatures over it for outbound requests, and verification of
// inbound webhook signatures over the exact raw body bytes.
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Signer holds the service's ed25519 identity.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner builds a signer from a 32-byte hex-encoded ed25519 seed.
func NewSigner(seedHex string) (*Signer, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(seedHex))
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// PublicKeyHex returns the service public key as lowercase hex.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pub)
}

// Sign produces the Authorization header value for a canonical payload:
// "ed25519 <hexPublicKey>.<hexSignature>".
func (s *Signer) Sign(payload string) string {
	sig := ed25519.Sign(s.priv, []byte(payload))
	return fmt.Sprintf("ed25519 %s.%s", hex.EncodeToString(s.pub), hex.EncodeToString(sig))
}

// Canonicalize builds the deterministic signing input: pairs sorted by
// key in byte order, joined as key=value with "&". Keys and values are
// percent-encoded with the counterparty's encodeURIComponent-compatible
// character set. List values are comma-joined before encoding.
func Canonicalize(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, encodeComponent(k)+"="+encodeComponent(stringify(params[k])))
	}
	return strings.Join(parts, "&")
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case []any:
		items := make([]string, len(t))
		for i, item := range t {
			items[i] = stringify(item)
		}
		return strings.Join(items, ",")
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// encodeComponent matches JavaScript's encodeURIComponent: alphanumerics
// and -_.!~*'() pass through, everything else is %XX-escaped per UTF-8 byte.
func encodeComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// Verify checks a base64 signature over the exact raw request bytes.
// The body must never be re-serialized before verification.
func Verify(rawBody []byte, signatureB64 string, counterparty ed25519.PublicKey) bool {
	if len(counterparty) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureB64))
	if err != nil {
		return false
	}
	return ed25519.Verify(counterparty, rawBody, sig)
}
