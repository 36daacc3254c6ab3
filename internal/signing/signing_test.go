package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
)

const testSeed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func TestCanonicalizeSortsByKey(t *testing.T) {
	got := Canonicalize(map[string]any{"b": "2", "a": "1"})
	if got != "a=1&b=2" {
		t.Errorf("Canonicalize = %q, want %q", got, "a=1&b=2")
	}
}

func TestCanonicalizeListValues(t *testing.T) {
	got := Canonicalize(map[string]any{"accounts": []string{"GA", "GB"}})
	if got != "accounts=GA%2CGB" {
		t.Errorf("Canonicalize = %q, want comma-joined encoded list", got)
	}
}

func TestCanonicalizeEncoding(t *testing.T) {
	// Matches encodeURIComponent: spaces and '&' escaped, -_.!~*'() kept.
	got := Canonicalize(map[string]any{"q": "a b&c", "keep": "-_.!~*'()"})
	want := "keep=-_.!~*'()&q=a%20b%26c"
	if got != want {
		t.Errorf("Canonicalize = %q, want %q", got, want)
	}
}

func TestCanonicalizeNumbers(t *testing.T) {
	got := Canonicalize(map[string]any{"nonce": int64(42), "amount": 1.5})
	if got != "amount=1.5&nonce=42" {
		t.Errorf("Canonicalize = %q", got)
	}
}

func TestSignFormat(t *testing.T) {
	s, err := NewSigner(testSeed)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	header := s.Sign("a=1&b=2")
	if !strings.HasPrefix(header, "ed25519 ") {
		t.Fatalf("header %q lacks ed25519 prefix", header)
	}
	parts := strings.SplitN(strings.TrimPrefix(header, "ed25519 "), ".", 2)
	if len(parts) != 2 {
		t.Fatalf("header %q is not <pub>.<sig>", header)
	}
	if parts[0] != s.PublicKeyHex() {
		t.Errorf("header public key = %q, want %q", parts[0], s.PublicKeyHex())
	}
}

func TestVerifyRawBody(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	body := []byte(`{"operation": {"id": "123",  "type":"payment"}}`)
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, body))

	if !Verify(body, sig, pub) {
		t.Error("valid signature rejected")
	}
	// Re-serialized JSON has different bytes and must fail.
	tampered := []byte(`{"operation":{"id":"123","type":"payment"}}`)
	if Verify(tampered, sig, pub) {
		t.Error("signature accepted over re-serialized body")
	}
	if Verify(body, "not-base64!!", pub) {
		t.Error("malformed signature accepted")
	}
	if Verify(body, sig, nil) {
		t.Error("verify succeeded without a key")
	}
}

func TestNewSignerRejectsBadSeed(t *testing.T) {
	if _, err := NewSigner("abcd"); err == nil {
		t.Error("short seed accepted")
	}
	if _, err := NewSigner("zz"); err == nil {
		t.Error("non-hex seed accepted")
	}
}
