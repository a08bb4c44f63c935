// Package primality implements the Miller-Rabin probabilistic primality test
// and bounded random prime generation.
package primality

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"elgamal_vectors/modarith"
	"elgamal_vectors/rng"
)

const (
	// DefaultRounds bounds the false-positive probability by 4^-40.
	DefaultRounds = 40
	// DefaultMaxAttempts is the number of candidates GeneratePrime draws
	// before giving up.
	DefaultMaxAttempts = 100000
)

// ErrGenerationFailed is returned when a bounded search runs out of attempts.
var ErrGenerationFailed = errors.New("generation failed")

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
)

// IsProbablePrime runs rounds Miller-Rabin iterations on n with witnesses
// drawn from rand in [2, n-2]. It returns false as soon as a witness proves n
// composite, and also when rand fails.
func IsProbablePrime(n *big.Int, rounds int, rand io.Reader) bool {
	switch {
	case n.Cmp(two) < 0:
		return false
	case n.Cmp(three) <= 0:
		return true
	case n.Bit(0) == 0:
		return false
	}

	// n-1 = 2^r * d with d odd
	nm1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nm1)
	r := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		r++
	}

	// witnesses in [2, n-2], i.e. [2, n-1)
	for i := 0; i < rounds; i++ {
		a, err := rng.Int(rand, two, nm1)
		if err != nil {
			return false
		}
		if !witnessPasses(a, d, nm1, n, r) {
			return false
		}
	}
	return true
}

func witnessPasses(a, d, nm1, n *big.Int, r int) bool {
	x := modarith.ModPow(a, d, n)
	if x.Cmp(one) == 0 || x.Cmp(nm1) == 0 {
		return true
	}
	for j := 0; j < r-1; j++ {
		x.Mul(x, x)
		x.Mod(x, n)
		if x.Cmp(nm1) == 0 {
			return true
		}
	}
	return false
}

// GeneratePrime draws random odd candidates of exactly bitLength bits until
// one passes IsProbablePrime. It fails with ErrGenerationFailed after
// maxAttempts candidates; maxAttempts <= 0 selects DefaultMaxAttempts.
func GeneratePrime(rand io.Reader, bitLength, rounds, maxAttempts int) (*big.Int, error) {
	if bitLength < 2 {
		return nil, fmt.Errorf("primality: bit length %d too small", bitLength)
	}
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	for i := 0; i < maxAttempts; i++ {
		p, err := rng.Bits(rand, bitLength)
		if err != nil {
			return nil, err
		}
		if IsProbablePrime(p, rounds, rand) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("primality: no %d-bit prime in %d attempts: %w", bitLength, maxAttempts, ErrGenerationFailed)
}
