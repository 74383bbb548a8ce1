package id

import (
	"encoding/base32"
	"strings"
	"testing"
)

func TestNewIDShape(t *testing.T) {
	generated, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}

	if len(generated) != 26 {
		t.Fatalf("expected 26 characters, got %d (%q)", len(generated), generated)
	}
	if generated != strings.ToLower(generated) {
		t.Fatalf("expected lowercase id, got %q", generated)
	}

	decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(generated))
	if err != nil {
		t.Fatalf("decode id: %v", err)
	}
	if len(decoded) != 16 {
		t.Fatalf("expected 16 decoded bytes, got %d", len(decoded))
	}

	// UUIDv4 version and variant bits survive the encoding round trip.
	if decoded[6]>>4 != 4 {
		t.Fatalf("expected version 4 uuid, got version %d", decoded[6]>>4)
	}
	if decoded[8]&0xc0 != 0x80 {
		t.Fatalf("expected RFC 4122 variant, got byte %x", decoded[8])
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		generated, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, ok := seen[generated]; ok {
			t.Fatalf("duplicate id generated: %q", generated)
		}
		seen[generated] = struct{}{}
	}
}
