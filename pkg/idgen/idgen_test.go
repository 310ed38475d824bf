package idgen

import (
	"regexp"
	"testing"
)

func TestHex32(t *testing.T) {
	hex := regexp.MustCompile(`^[0-9a-f]{32}$`)
	gen := Hex32()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if !hex.MatchString(id) {
			t.Fatalf("id %q is not 32 lowercase hex chars", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
