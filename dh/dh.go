// Package dh computes Diffie-Hellman exchanges over ElGamal domain
// parameters.
package dh

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"elgamal_vectors/modarith"
	"elgamal_vectors/revhex"
)

// ErrDisagreement is returned when the two parties derive different shared
// secrets, which only happens for malformed inputs.
var ErrDisagreement = errors.New("dh: shared secrets disagree")

// Exchange holds both public values and the shared secret.
type Exchange struct {
	A, B, K *big.Int
}

// Compute returns A = g^a, B = g^b and K = A^b mod p, checking K = B^a.
func Compute(p, g, a, b *big.Int) (Exchange, error) {
	if p.Cmp(big.NewInt(2)) < 0 {
		return Exchange{}, fmt.Errorf("dh: modulus %s too small", p)
	}
	if a.Sign() < 0 || b.Sign() < 0 {
		return Exchange{}, errors.New("dh: negative exponent")
	}
	A := modarith.ModPow(g, a, p)
	B := modarith.ModPow(g, b, p)
	K := modarith.ModPow(A, b, p)
	if K.Cmp(modarith.ModPow(B, a, p)) != 0 {
		return Exchange{}, ErrDisagreement
	}
	return Exchange{A: A, B: B, K: K}, nil
}

// ReadInput reads p, g, a, b from the wire format.
func ReadInput(r io.Reader) (p, g, a, b *big.Int, err error) {
	f, err := revhex.ReadFields(r, 4)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return f[0], f[1], f[2], f[3], nil
}

// WriteInput writes p, g, a, b in the wire format.
func WriteInput(w io.Writer, p, g, a, b *big.Int) error {
	return revhex.WriteFields(w, p, g, a, b)
}

// WriteOutput writes A, B, K one per line.
func (e Exchange) WriteOutput(w io.Writer) error {
	return revhex.WriteFields(w, e.A, e.B, e.K)
}
