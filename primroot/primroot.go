// Package primroot finds generators of the multiplicative group modulo a
// prime.
//
// A candidate g is accepted when g^((p-1)/q) != 1 mod p for every prime factor
// q of p-1. The factorization is obtained by bounded trial division, so for a
// large p whose p-1 keeps a big composite cofactor the factor list is
// incomplete and an accepted candidate cannot be proven to be a generator.
// Find reports that case as Unverified instead of guessing.
package primroot

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"elgamal_vectors/modarith"
	"elgamal_vectors/primality"
	"elgamal_vectors/rng"
)

const (
	// DefaultTrialLimit bounds the divisors tried while factoring p-1.
	DefaultTrialLimit = 1 << 20
	// DefaultSmallCandidates is the exclusive upper bound of the sequential
	// candidate scan.
	DefaultSmallCandidates = 1000
	// DefaultRandomAttempts is the number of random candidates tried after
	// the sequential scan.
	DefaultRandomAttempts = 1000
)

// Status tags a Result.
type Status int

const (
	// Found means G is a proven generator.
	Found Status = iota
	// Unverified means G is not proven to be a generator, either because the
	// factorization of p-1 is incomplete or because no candidate passed and G
	// is the fallback value.
	Unverified
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Unverified:
		return "unverified"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of Find.
type Result struct {
	G      *big.Int
	Status Status
}

// Verified reports whether G is a proven generator.
func (r Result) Verified() bool {
	return r.Status == Found
}

// Factorization holds the distinct prime factors of a number.
type Factorization struct {
	Primes []*big.Int
	// Complete is false when a cofactor could not be shown prime within the
	// trial limit. It is then the last element of Primes.
	Complete bool
}

// Options controls the bounded searches of Find.
type Options struct {
	TrialLimit      int64
	SmallCandidates int64
	RandomAttempts  int
}

// DefaultOptions returns the limits used when Find is given nil options.
func DefaultOptions() *Options {
	return &Options{
		TrialLimit:      DefaultTrialLimit,
		SmallCandidates: DefaultSmallCandidates,
		RandomAttempts:  DefaultRandomAttempts,
	}
}

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Factor returns the distinct prime factors of n >= 1 using trial division by
// divisors up to min(sqrt(n), limit).
func Factor(n *big.Int, limit int64, rand io.Reader) Factorization {
	rest := new(big.Int).Set(n)
	var primes []*big.Int

	d := big.NewInt(2)
	q, r := new(big.Int), new(big.Int)
	sq := new(big.Int)
	for i := int64(2); i <= limit; i++ {
		d.SetInt64(i)
		if sq.Mul(d, d).Cmp(rest) > 0 {
			break
		}
		if q.QuoRem(rest, d, r); r.Sign() != 0 {
			continue
		}
		primes = append(primes, new(big.Int).Set(d))
		for {
			q.QuoRem(rest, d, r)
			if r.Sign() != 0 {
				break
			}
			rest.Set(q)
		}
	}

	if rest.Cmp(one) <= 0 {
		return Factorization{Primes: primes, Complete: true}
	}
	complete := sq.Mul(d, d).Cmp(rest) > 0 || primality.IsProbablePrime(rest, primality.DefaultRounds, rand)
	return Factorization{Primes: append(primes, rest), Complete: complete}
}

// IsGenerator reports whether g^((p-1)/q) != 1 mod p for every q in factors.
// With the complete list of prime factors of p-1 this is exactly the test for
// a primitive root.
func IsGenerator(g, p *big.Int, factors []*big.Int) bool {
	if p.Cmp(two) < 0 {
		return false
	}
	gr := new(big.Int).Mod(g, p)
	if gr.Sign() == 0 {
		return false
	}
	phi := new(big.Int).Sub(p, one)
	e, rem := new(big.Int), new(big.Int)
	for _, q := range factors {
		if q.Sign() <= 0 {
			return false
		}
		e.QuoRem(phi, q, rem)
		if rem.Sign() != 0 {
			return false
		}
		if modarith.ModPow(gr, e, p).Cmp(one) == 0 {
			return false
		}
	}
	return true
}

// Find searches for a generator of the multiplicative group modulo the prime
// p: sequentially from 2, then by random sampling in [2, p). When nothing
// passes, it returns the fallback 2 tagged Unverified.
func Find(p *big.Int, rand io.Reader, opts *Options) (Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if p.Cmp(two) < 0 {
		return Result{}, errors.New("primroot: modulus must be a prime >= 2")
	}
	if p.Cmp(two) == 0 {
		return Result{G: big.NewInt(1), Status: Found}, nil
	}

	phi := new(big.Int).Sub(p, one)
	f := Factor(phi, opts.TrialLimit, rand)
	status := Found
	if !f.Complete {
		status = Unverified
	}

	limit := big.NewInt(opts.SmallCandidates)
	if p.Cmp(limit) < 0 {
		limit.Set(p)
	}
	g := big.NewInt(2)
	for ; g.Cmp(limit) < 0; g.Add(g, one) {
		if IsGenerator(g, p, f.Primes) {
			return Result{G: new(big.Int).Set(g), Status: status}, nil
		}
	}

	for i := 0; i < opts.RandomAttempts; i++ {
		c, err := rng.Int(rand, two, p)
		if err != nil {
			return Result{}, err
		}
		if IsGenerator(c, p, f.Primes) {
			return Result{G: c, Status: status}, nil
		}
	}
	return Result{G: big.NewInt(2), Status: Unverified}, nil
}
