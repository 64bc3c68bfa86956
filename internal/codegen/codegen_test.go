package codegen

import (
	"strings"
	"testing"
)

func TestGenerateLengthAndCharset(t *testing.T) {
	g := New(10)
	for i := 0; i < 200; i++ {
		code := g.Generate()
		if len(code) != 10 {
			t.Fatalf("code %q has length %d, want 10", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
	}
}

func TestGenerateDefaultLength(t *testing.T) {
	g := New(0)
	if got := g.Length(); got != DefaultLength {
		t.Fatalf("Length() = %d, want %d", got, DefaultLength)
	}
	if code := g.Generate(); len(code) != DefaultLength {
		t.Fatalf("generated length %d, want %d", len(code), DefaultLength)
	}
}

func TestGenerateVaries(t *testing.T) {
	g := New(10)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[g.Generate()] = true
	}
	// 100 draws from a 31^10 space colliding would indicate a broken source.
	if len(seen) < 100 {
		t.Fatalf("only %d distinct codes out of 100 draws", len(seen))
	}
}

func TestAlphabetAvoidsAmbiguousGlyphs(t *testing.T) {
	for _, c := range "0O1IL" {
		if strings.ContainsRune(alphabet, c) {
			t.Fatalf("alphabet contains ambiguous glyph %q", c)
		}
	}
}
