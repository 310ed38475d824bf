// Package idgen generates document identifiers.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// Hex32 returns a Generator of 32-character lowercase hex IDs, the same shape
// as a Notion page ID without dashes.
func Hex32() Generator {
	return func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
}

// Default is the generator used when a component is given none.
var Default Generator = Hex32()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
