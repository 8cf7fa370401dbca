package ident

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/zeebo/blake3"
)

// TestSelectorDeterministic verifies the same name always yields the same 4 bytes.
func TestSelectorDeterministic(t *testing.T) {
	a := SelectorOf("ERC721")
	b := SelectorOf("ERC721")

	if a != b {
		t.Fatalf("selector not deterministic: %s vs %s", a, b)
	}

	sum := blake3.Sum256([]byte("ERC721"))
	if a[0] != sum[0] || a[1] != sum[1] || a[2] != sum[2] || a[3] != sum[3] {
		t.Errorf("selector %s is not the blake3 prefix", a)
	}

	if SelectorOf("ERC1155") == a {
		t.Error("different names should yield different selectors")
	}
}

func TestSelectorParseRoundTrip(t *testing.T) {
	s := SelectorOf("FIXED_PRICE")

	parsed, err := ParseSelector(s.String())
	if err != nil {
		t.Fatalf("ParseSelector failed: %v", err)
	}

	if parsed != s {
		t.Errorf("parsed %s, want %s", parsed, s)
	}

	if _, err := ParseSelector("0x0102"); err == nil {
		t.Error("expected error for short selector")
	}
}

func TestFromPubkey(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)

	a := FromPubkey(pub)
	if a.IsZero() {
		t.Fatal("derived address should not be zero")
	}

	if FromPubkey(pub) != a {
		t.Error("address derivation not deterministic")
	}
}

func TestDeriveDistinctNonces(t *testing.T) {
	if Derive("warper", 1) == Derive("warper", 2) {
		t.Error("different nonces should derive different addresses")
	}

	if Derive("warper", 1) == Derive("vault", 1) {
		t.Error("different namespaces should derive different addresses")
	}
}

func TestAddressJSON(t *testing.T) {
	a := Named("metahub")

	raw, err := json.Marshal(map[string]Address{"a": a})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out map[string]Address
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if out["a"] != a {
		t.Errorf("round trip mismatch: %s vs %s", out["a"], a)
	}

	if _, err := ParseAddress("0x1234"); err == nil {
		t.Error("expected error for short address")
	}
}
