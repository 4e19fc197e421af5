package chain

import (
	"errors"
	"testing"
)

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash([]byte("the scream, 1893"))
	b := ContentHash([]byte("the scream, 1893"))
	if a != b {
		t.Fatalf("digest not deterministic: %s != %s", a.Hex(), b.Hex())
	}
	c := ContentHash([]byte("the scream, 1910"))
	if a == c {
		t.Fatal("distinct content produced identical digest")
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
	for _, bad := range []string{"", "0x123", "not-hex", "0x0000000000000000000000000000000000000000"} {
		if _, err := ParseAddress(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %q, got %v", bad, err)
		}
	}
}

func TestParseHash(t *testing.T) {
	h := ContentHash([]byte("starry night"))
	parsed, err := ParseHash(h.Hex())
	if err != nil {
		t.Fatalf("valid hash rejected: %v", err)
	}
	if parsed != h {
		t.Fatalf("roundtrip mismatch: %s != %s", parsed.Hex(), h.Hex())
	}
	for _, bad := range []string{"", "0xabc123", "0x" + string(make([]byte, 64))} {
		if _, err := ParseHash(bad); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %q, got %v", bad, err)
		}
	}
}
