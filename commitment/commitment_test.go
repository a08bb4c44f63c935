package commitment

import (
	"crypto/rand"
	"math/big"
	"testing"

	"elgamal_vectors/elgamal"
	"elgamal_vectors/hashfunctions"
	"elgamal_vectors/rng"

	"github.com/consensys/gnark/test"
)

func TestProveVerify(t *testing.T) {
	assert := test.NewAssert(t)

	msg := []byte("ballot #42: yes")
	keys, err := Setup(len(msg))
	assert.NoError(err)
	assert.True(keys.Constraints() > 0)

	proof, digest, err := keys.Prove(msg)
	assert.NoError(err)

	want, err := hashfunctions.Sum(hashfunctions.MiMC, msg)
	assert.NoError(err)
	assert.Equal(want, digest)

	assert.NoError(keys.Verify(proof, digest))

	other, err := hashfunctions.Sum(hashfunctions.MiMC, []byte("ballot #42: no!"))
	assert.NoError(err)
	assert.Error(keys.Verify(proof, other))
}

func TestChunkCountMismatch(t *testing.T) {
	assert := test.NewAssert(t)

	keys, err := Setup(10)
	assert.NoError(err)

	// same chunk count, different length
	_, _, err = keys.Prove([]byte("short"))
	assert.NoError(err)

	_, _, err = keys.Prove(make([]byte, 40))
	assert.Error(err)
}

func TestNumChunks(t *testing.T) {
	assert := test.NewAssert(t)
	assert.Equal(0, NumChunks(0))
	assert.Equal(1, NumChunks(1))
	assert.Equal(1, NumChunks(31))
	assert.Equal(2, NumChunks(32))
	for _, n := range []int{0, 5, 31, 62, 63, 100} {
		assert.Equal(len(hashfunctions.Chunks(make([]byte, n))), NumChunks(n))
	}
}

// A signature over a MiMC digest can be checked by someone who only holds
// the digest and the proof.
func TestSignedDigest(t *testing.T) {
	assert := test.NewAssert(t)

	stream, err := rng.NewStream([]byte(t.Name()), 0)
	assert.NoError(err)
	pp, err := elgamal.GenerateParams(stream, 64, 0, 0)
	assert.NoError(err)
	priv, err := elgamal.GenerateKey(rand.Reader, pp)
	assert.NoError(err)

	msg := []byte("transfer 10 to bob")
	sig, err := priv.SignMessage(rand.Reader, hashfunctions.MiMC, msg)
	assert.NoError(err)

	keys, err := Setup(len(msg))
	assert.NoError(err)
	proof, digest, err := keys.Prove(msg)
	assert.NoError(err)

	// verifier side: no access to msg
	assert.NoError(keys.Verify(proof, digest))
	pm1 := new(big.Int).Sub(pp.P, big.NewInt(1))
	m := new(big.Int).SetBytes(digest)
	m.Mod(m, pm1)
	assert.True(priv.PublicKey.Verify(m, sig))
}
