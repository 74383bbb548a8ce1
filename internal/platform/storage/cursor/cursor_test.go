package cursor

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token, err := Encode(Cursor{LastID: "exp-42"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.LastID != "exp-42" {
		t.Fatalf("expected last id exp-42, got %q", decoded.LastID)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode(""); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := Decode("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
