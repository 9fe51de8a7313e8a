package shortener

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// alphabet matches the code space: 26 lowercase + 26 uppercase + 10 digits.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const defaultCodeLength = 6

// RandomCodeGenerator draws each character independently from the base62
// alphabet using crypto/rand.
type RandomCodeGenerator struct{}

func NewRandomCodeGenerator() *RandomCodeGenerator { return &RandomCodeGenerator{} }

func (g *RandomCodeGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = defaultCodeLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i := range buf {
		out[i] = alphabet[int(buf[i])%len(alphabet)]
	}

	return string(out), nil
}

// EncodeNumber maps a non-negative integer to its base-62 representation,
// most significant digit first. Zero maps to the first alphabet character.
// Unused by the random allocation path; kept as the deterministic
// sequential-code alternative.
func EncodeNumber(n uint64) string {
	if n == 0 {
		return string(alphabet[0])
	}

	var sb []byte
	for n > 0 {
		sb = append([]byte{alphabet[n%62]}, sb...)
		n /= 62
	}
	return string(sb)
}

// DecodeNumber reverses EncodeNumber.
func DecodeNumber(code string) (uint64, error) {
	var n uint64
	for _, c := range code {
		idx := strings.IndexRune(alphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("invalid base62 character %q", c)
		}
		n = n*62 + uint64(idx)
	}
	return n, nil
}
