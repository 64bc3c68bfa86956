// Package codegen produces short human-typable exam access codes.
//
// The generator only draws candidates; global uniqueness among non-deleted
// exams is enforced by the store's unique index on the code column. Callers
// insert the candidate and retry on a uniqueness violation.
package codegen

import (
	"crypto/rand"
	"math/big"
)

// alphabet deliberately omits characters that are easy to misread when an
// author dictates a code (0/O, 1/I/L).
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultLength matches the code space of roughly 31^10 candidates, large
// enough that collisions stay vanishingly rare at any realistic exam count.
const DefaultLength = 10

// Generator mints access-code candidates of a fixed length.
type Generator struct {
	length int
}

// New creates a Generator. A non-positive length falls back to DefaultLength.
func New(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Generate returns one random candidate code. It does not probe or reserve
// anything; the persisting caller owns the uniqueness check.
func (g *Generator) Generate() string {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process has no entropy source;
			// nothing sensible can continue.
			panic(err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf)
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}
