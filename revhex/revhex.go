// Package revhex implements the "reversed hexadecimal" text encoding of
// unsigned integers: conventional big-endian hex with leading zeros trimmed,
// read back to front.
package revhex

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// Zero is the encoding of the integer 0.
const Zero = "0"

// DecodeError reports a character that is not a hex digit.
type DecodeError struct {
	Input  string
	Offset int // offset in the whitespace-stripped input
	Char   rune
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("revhex: invalid character %q at offset %d in %q", e.Char, e.Offset, e.Input)
}

// Decode parses a reversed hex string. All whitespace is ignored and an empty
// string decodes to 0.
func Decode(text string) (*big.Int, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	for i, c := range digits {
		if !isHexDigit(c) {
			return nil, &DecodeError{Input: text, Offset: i, Char: c}
		}
	}
	if len(digits) == 0 {
		return new(big.Int), nil
	}

	s := reverse(digits)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("revhex: %w", err)
	}
	return new(big.Int).SetBytes(buf), nil
}

// Encode renders v, which must be non-negative, as uppercase reversed hex.
func Encode(v *big.Int) string {
	if v.Sign() < 0 {
		panic("revhex: negative value")
	}
	if v.Sign() == 0 {
		return Zero
	}

	// little-endian byte split
	var le []byte
	t := new(big.Int).Set(v)
	mask := big.NewInt(0xFF)
	b := new(big.Int)
	for t.Sign() > 0 {
		le = append(le, byte(b.And(t, mask).Uint64()))
		t.Rsh(t, 8)
	}

	const digits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(2 * len(le))
	for i := len(le) - 1; i >= 0; i-- {
		sb.WriteByte(digits[le[i]>>4])
		sb.WriteByte(digits[le[i]&0x0F])
	}

	s := strings.TrimLeft(sb.String(), "0")
	if s == "" {
		return Zero
	}
	s = strings.TrimRight(reverse(s), "0")
	if s == "" {
		return Zero
	}
	return s
}

// Equal compares two encoded values ignoring case and surrounding whitespace.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func isHexDigit(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
