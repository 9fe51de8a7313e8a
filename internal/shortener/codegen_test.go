package shortener

import (
	"strings"
	"testing"
)

func TestRandomCodeGeneratorGenerate(t *testing.T) {
	g := NewRandomCodeGenerator()

	t.Run("correct length", func(t *testing.T) {
		for _, length := range []int{1, 6, 8, 32} {
			code, err := g.Generate(length)
			if err != nil {
				t.Fatal(err)
			}
			if len(code) != length {
				t.Errorf("got length %d, want %d", len(code), length)
			}
		}
	})

	t.Run("base62 alphabet only", func(t *testing.T) {
		code, err := g.Generate(200)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Errorf("code contains non-base62 char: %q", c)
			}
		}
	})

	t.Run("zero length uses fallback", func(t *testing.T) {
		code, err := g.Generate(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != defaultCodeLength {
			t.Errorf("got length %d, want %d (fallback)", len(code), defaultCodeLength)
		}
	})

	t.Run("uniqueness over 100 calls", func(t *testing.T) {
		seen := make(map[string]struct{}, 100)
		for i := 0; i < 100; i++ {
			code, err := g.Generate(10)
			if err != nil {
				t.Fatal(err)
			}
			if _, exists := seen[code]; exists {
				t.Fatalf("duplicate code on iteration %d: %q", i, code)
			}
			seen[code] = struct{}{}
		}
	})
}

func TestEncodeNumber(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "a"},
		{1, "b"},
		{25, "z"},
		{26, "A"},
		{61, "9"},
		{62, "ba"},
		{63, "bb"},
		{62 * 62, "baa"},
	}

	for _, tt := range tests {
		if got := EncodeNumber(tt.n); got != tt.want {
			t.Errorf("EncodeNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDecodeNumberRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 61, 62, 63, 1000, 123456789, 62 * 62 * 62, 5e10}
	for _, n := range cases {
		code := EncodeNumber(n)
		got, err := DecodeNumber(code)
		if err != nil {
			t.Fatalf("DecodeNumber(%q): %v", code, err)
		}
		if got != n {
			t.Errorf("round trip of %d via %q gave %d", n, code, got)
		}
	}
}

func TestDecodeNumberInvalidChar(t *testing.T) {
	if _, err := DecodeNumber("ab!"); err == nil {
		t.Error("expected error for non-alphabet character")
	}
}
