// Package modarith provides modular exponentiation and modular inversion over
// arbitrary-precision integers.
package modarith

import (
	"errors"
	"fmt"
	"math/big"
)

var one = big.NewInt(1)

// ErrNoInverse matches any *NoInverseError.
var ErrNoInverse = errors.New("modarith: no modular inverse")

// NoInverseError is returned when a has no inverse modulo M.
type NoInverseError struct {
	A, M, GCD *big.Int
}

func (e *NoInverseError) Error() string {
	return fmt.Sprintf("modarith: %s has no inverse mod %s (gcd %s)", e.A, e.M, e.GCD)
}

func (e *NoInverseError) Is(target error) bool {
	return target == ErrNoInverse
}

// ModPow returns base^exp mod mod in [0, mod). It panics if mod < 1 or
// exp < 0.
func ModPow(base, exp, mod *big.Int) *big.Int {
	if mod.Sign() <= 0 {
		panic("modarith: modulus must be positive")
	}
	if exp.Sign() < 0 {
		panic("modarith: negative exponent")
	}
	if mod.Cmp(one) == 0 {
		return new(big.Int)
	}
	b := new(big.Int).Mod(base, mod)
	return b.Exp(b, exp, mod)
}

// ExtendedGCD returns g = gcd(a, b) and x, y with a*x + b*y = g. Both inputs
// must be non-negative.
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	oldR, r := new(big.Int).Set(a), new(big.Int).Set(b)
	oldS, s := big.NewInt(1), big.NewInt(0)
	oldT, t := big.NewInt(0), big.NewInt(1)

	q := new(big.Int)
	tmp := new(big.Int)
	for r.Sign() != 0 {
		q.Quo(oldR, r)

		tmp.Mul(q, r)
		oldR, r = r, new(big.Int).Sub(oldR, tmp)

		tmp.Mul(q, s)
		oldS, s = s, new(big.Int).Sub(oldS, tmp)

		tmp.Mul(q, t)
		oldT, t = t, new(big.Int).Sub(oldT, tmp)
	}
	return oldR, oldS, oldT
}

// GCD returns the greatest common divisor of two non-negative integers.
func GCD(a, b *big.Int) *big.Int {
	g, _, _ := ExtendedGCD(a, b)
	return g
}

// Coprime reports whether gcd(a, b) == 1.
func Coprime(a, b *big.Int) bool {
	return GCD(a, b).Cmp(one) == 0
}

// ModInverse returns x in [0, m) with a*x = 1 mod m.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	if m.Sign() <= 0 {
		return nil, &NoInverseError{A: new(big.Int).Set(a), M: new(big.Int).Set(m), GCD: new(big.Int).Abs(m)}
	}
	ar := new(big.Int).Mod(a, m)
	g, x, _ := ExtendedGCD(ar, m)
	if g.Cmp(one) != 0 {
		return nil, &NoInverseError{A: new(big.Int).Set(a), M: new(big.Int).Set(m), GCD: g}
	}
	// ((x mod m) + m) mod m
	x.Mod(x, m)
	x.Add(x, m)
	return x.Mod(x, m), nil
}
