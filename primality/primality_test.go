package primality

import (
	"errors"
	"math/big"
	"testing"

	"elgamal_vectors/rng"

	"github.com/consensys/gnark/test"
)

// constReader yields the same byte forever.
type constReader byte

func (c constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c)
	}
	return len(p), nil
}

func sieve(n int) []bool {
	composite := make([]bool, n)
	composite[0], composite[1] = true, true
	for i := 2; i*i < n; i++ {
		if composite[i] {
			continue
		}
		for j := i * i; j < n; j += i {
			composite[j] = true
		}
	}
	return composite
}

func TestIsProbablePrimeExhaustive(t *testing.T) {
	assert := test.NewAssert(t)

	stream, err := rng.NewStream([]byte("exhaustive"), 0)
	assert.NoError(err)

	const bound = 10000
	composite := sieve(bound)
	for n := 0; n < bound; n++ {
		got := IsProbablePrime(big.NewInt(int64(n)), 20, stream)
		assert.Equal(!composite[n], got, "n=%d", n)
	}
}

func TestIsProbablePrimeCarmichael(t *testing.T) {
	assert := test.NewAssert(t)
	for _, n := range []int64{561, 1105, 1729, 2465, 2821, 6601, 8911, 41041, 825265, 321197185} {
		assert.False(IsProbablePrime(big.NewInt(n), DefaultRounds, rng.Default()), "n=%d", n)
	}
}

func TestIsProbablePrimeLarge(t *testing.T) {
	assert := test.NewAssert(t)

	m127 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	assert.True(IsProbablePrime(m127, DefaultRounds, rng.Default()))

	// 2^128 + 1 = 59649589127497217 * 5704689200685129054721
	f7 := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	assert.False(IsProbablePrime(f7, DefaultRounds, rng.Default()))

	// product of two 61-bit Mersenne primes
	m61 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 61), big.NewInt(1))
	assert.False(IsProbablePrime(new(big.Int).Mul(m61, m61), DefaultRounds, rng.Default()))
}

func TestGeneratePrime(t *testing.T) {
	assert := test.NewAssert(t)

	for _, bits := range []int{2, 3, 8, 16, 32, 64, 128, 256} {
		p, err := GeneratePrime(rng.Default(), bits, DefaultRounds, 0)
		assert.NoError(err, "bits=%d", bits)
		assert.Equal(bits, p.BitLen())
		assert.True(p.ProbablyPrime(20), "%s is not prime", p)
	}

	_, err := GeneratePrime(rng.Default(), 1, DefaultRounds, 0)
	assert.Error(err)
}

func TestGeneratePrimeDeterministic(t *testing.T) {
	assert := test.NewAssert(t)

	gen := func() *big.Int {
		s, err := rng.NewStream([]byte("seed"), 7)
		assert.NoError(err)
		p, err := GeneratePrime(s, 64, DefaultRounds, 0)
		assert.NoError(err)
		return p
	}
	assert.Equal(0, gen().Cmp(gen()))
}

func TestGeneratePrimeBounded(t *testing.T) {
	assert := test.NewAssert(t)

	// every candidate is 9, which is composite
	_, err := GeneratePrime(constReader(0x09), 4, DefaultRounds, 3)
	assert.True(errors.Is(err, ErrGenerationFailed))
}
