// Package id generates the identifiers handed to experiments, variants,
// assignments, and observations.
//
// An identifier is a random UUID re-encoded as unpadded lowercase base32,
// which keeps it 26 characters, URL-safe, and comparable as a plain TEXT
// primary key.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new 26-character identifier. The only failure mode is
// entropy exhaustion in the underlying UUID generation.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}
