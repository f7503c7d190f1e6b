// Package id generates opaque identifiers for records written by prep.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random UUIDv4 encoded as 26 lowercase base32 characters.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}

// NewToken returns a random UUID string, used where a canonical form is expected.
func NewToken() string {
	return uuid.NewString()
}
