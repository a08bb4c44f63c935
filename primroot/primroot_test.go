package primroot

import (
	"fmt"
	"math/big"
	"testing"

	"elgamal_vectors/rng"

	"github.com/consensys/gnark/test"
)

func ints(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

// order returns the multiplicative order of g mod p by brute force.
func order(g, p int64) int64 {
	x := g % p
	for k := int64(1); k < p; k++ {
		if x == 1 {
			return k
		}
		x = x * g % p
	}
	return 0
}

func TestFactor(t *testing.T) {
	assert := test.NewAssert(t)

	f := Factor(big.NewInt(360), DefaultTrialLimit, rng.Default())
	assert.True(f.Complete)
	assert.Equal(ints(2, 3, 5), f.Primes)

	f = Factor(big.NewInt(1), DefaultTrialLimit, rng.Default())
	assert.True(f.Complete)
	assert.Empty(f.Primes)

	f = Factor(big.NewInt(2*1000003), 10, rng.Default())
	assert.True(f.Complete, "prime cofactor is accepted")
	assert.Equal(ints(2, 1000003), f.Primes)

	f = Factor(big.NewInt(2*1000003*1000033), 1000, rng.Default())
	assert.False(f.Complete)
	assert.Equal(ints(2, 1000003*1000033), f.Primes)
}

func TestIsGeneratorMatchesOrder(t *testing.T) {
	assert := test.NewAssert(t)

	for p := int64(3); p < 400; p++ {
		if !big.NewInt(p).ProbablyPrime(10) {
			continue
		}
		pb := big.NewInt(p)
		f := Factor(big.NewInt(p-1), DefaultTrialLimit, rng.Default())
		assert.True(f.Complete)
		for g := int64(1); g < p; g++ {
			want := order(g, p) == p-1
			assert.Equal(want, IsGenerator(big.NewInt(g), pb, f.Primes), "g=%d p=%d", g, p)
		}
	}
}

func TestIsGeneratorRejects(t *testing.T) {
	assert := test.NewAssert(t)
	p := big.NewInt(23)
	assert.False(IsGenerator(big.NewInt(0), p, ints(2, 11)))
	assert.False(IsGenerator(big.NewInt(23), p, ints(2, 11)))
	assert.False(IsGenerator(big.NewInt(5), p, ints(3)), "3 does not divide 22")
	assert.True(IsGenerator(big.NewInt(5), p, ints(2, 11)))
	assert.True(IsGenerator(big.NewInt(28), p, ints(2, 11)), "28 = 5 mod 23")
}

func TestFind(t *testing.T) {
	assert := test.NewAssert(t)

	smallest := map[int64]int64{3: 2, 7: 3, 23: 5, 41: 6, 71: 7, 191: 19, 409: 21}
	for p, g := range smallest {
		res, err := Find(big.NewInt(p), rng.Default(), nil)
		assert.NoError(err)
		assert.Equal(Found, res.Status, "p=%d", p)
		assert.True(res.Verified())
		assert.Equal(g, res.G.Int64(), "p=%d", p)
	}

	res, err := Find(big.NewInt(2), rng.Default(), nil)
	assert.NoError(err)
	assert.Equal(int64(1), res.G.Int64())

	_, err = Find(big.NewInt(1), rng.Default(), nil)
	assert.Error(err)
}

func TestFindLarge(t *testing.T) {
	assert := test.NewAssert(t)

	m127 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	res, err := Find(m127, rng.Default(), nil)
	assert.NoError(err)
	assert.Equal(Found, res.Status)

	f := Factor(new(big.Int).Sub(m127, big.NewInt(1)), DefaultTrialLimit, rng.Default())
	assert.True(f.Complete)
	assert.True(IsGenerator(res.G, m127, f.Primes))
}

func TestFindIncompleteFactorization(t *testing.T) {
	assert := test.NewAssert(t)

	// 70 = 2 * 5 * 7; a trial limit of 3 leaves the composite cofactor 35
	opts := &Options{TrialLimit: 3, SmallCandidates: DefaultSmallCandidates, RandomAttempts: 10}
	res, err := Find(big.NewInt(71), rng.Default(), opts)
	assert.NoError(err)
	assert.Equal(Unverified, res.Status)
	assert.False(res.Verified())
	assert.Equal(int64(7), res.G.Int64())
}

func TestFindFallback(t *testing.T) {
	assert := test.NewAssert(t)

	// only candidate 2 is scanned and it is a quadratic residue mod 71
	opts := &Options{TrialLimit: DefaultTrialLimit, SmallCandidates: 3, RandomAttempts: 0}
	res, err := Find(big.NewInt(71), rng.Default(), opts)
	assert.NoError(err)
	assert.Equal(Unverified, res.Status)
	assert.Equal(int64(2), res.G.Int64())
}

func ExampleFind() {
	res, _ := Find(big.NewInt(23), rng.Default(), nil)
	fmt.Println(res.G, res.Status)
	// Output: 5 found
}
