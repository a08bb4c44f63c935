// Package rng provides the random sources used for key, witness and
// generator sampling.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"math/big"

	"golang.org/x/crypto/blake2b"
)

// Default returns the operating system CSPRNG.
func Default() io.Reader {
	return rand.Reader
}

// NewStream returns a deterministic stream keyed by seed and index. Streams
// with different indices are independent, so test cases generated in
// parallel never share random state.
func NewStream(seed []byte, index uint64) (io.Reader, error) {
	key := seed
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(seed)
		key = sum[:]
	}
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, key)
	if err != nil {
		return nil, err
	}
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	if _, err := xof.Write(idx[:]); err != nil {
		return nil, err
	}
	return xof, nil
}

// Int returns a uniform integer in [lo, hi).
func Int(r io.Reader, lo, hi *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(hi, lo)
	if span.Sign() <= 0 {
		return nil, errors.New("rng: empty range")
	}
	n, err := rand.Int(r, span)
	if err != nil {
		return nil, err
	}
	return n.Add(n, lo), nil
}

// Bits returns a random integer with exactly bits bits that is odd: the top
// and bottom bits are forced to 1.
func Bits(r io.Reader, bits int) (*big.Int, error) {
	if bits < 2 {
		return nil, errors.New("rng: bit length must be at least 2")
	}
	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	// clear the bits above the requested length
	if extra := uint(len(buf)*8 - bits); extra > 0 {
		buf[0] &= byte(0xFF >> extra)
	}
	n := new(big.Int).SetBytes(buf)
	n.SetBit(n, bits-1, 1)
	n.SetBit(n, 0, 1)
	return n, nil
}
