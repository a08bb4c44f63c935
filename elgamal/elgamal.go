package elgamal

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"elgamal_vectors/modarith"
	"elgamal_vectors/primality"
	"elgamal_vectors/primroot"
	"elgamal_vectors/rng"
)

// signAttempts bounds the ephemeral key regenerations of PrivateKey.Sign.
const signAttempts = 64

var (
	// ErrDegenerateSignature is returned by SignWithK when r or s is zero;
	// the caller must pick another ephemeral key.
	ErrDegenerateSignature = errors.New("elgamal: degenerate signature (r or s is zero)")
	// ErrInvalidParams is returned for domain parameters that cannot be used.
	ErrInvalidParams = errors.New("elgamal: invalid domain parameters")
)

var (
	one  = big.NewInt(1)
	two  = big.NewInt(2)
	five = big.NewInt(5)
)

// Params are the domain parameters: a prime P and a generator G of the
// multiplicative group mod P.
type Params struct {
	P, G *big.Int
}

// PublicKey is an ElGamal public key: Y = G^X mod P.
type PublicKey struct {
	Params
	Y *big.Int
}

// PrivateKey is an ElGamal private key with 1 <= X <= P-2.
type PrivateKey struct {
	PublicKey PublicKey // copy of the associated public key
	X         *big.Int
}

// Ciphertext is an ElGamal ciphertext.
type Ciphertext struct {
	C1, C2 *big.Int
}

// Signature is an ElGamal signature.
type Signature struct {
	R, S *big.Int
}

// Check validates the shape of the parameters. Primality of P is not tested.
func (pp Params) Check() error {
	if pp.P == nil || pp.G == nil {
		return fmt.Errorf("%w: missing P or G", ErrInvalidParams)
	}
	if pp.P.Cmp(five) < 0 {
		return fmt.Errorf("%w: P = %s is too small", ErrInvalidParams, pp.P)
	}
	if pp.G.Cmp(two) < 0 || pp.G.Cmp(pp.P) >= 0 {
		return fmt.Errorf("%w: G must be in [2, P)", ErrInvalidParams)
	}
	return nil
}

func (pp Params) order() *big.Int {
	return new(big.Int).Sub(pp.P, one)
}

// GenerateParams draws a prime of the given size and a generator for it.
// Primes whose generator search comes back unverified are discarded, up to
// maxAttempts times.
func GenerateParams(rand io.Reader, bits, rounds, maxAttempts int) (Params, error) {
	if maxAttempts <= 0 {
		maxAttempts = primality.DefaultMaxAttempts
	}
	for i := 0; i < maxAttempts; i++ {
		p, err := primality.GeneratePrime(rand, bits, rounds, maxAttempts)
		if err != nil {
			return Params{}, err
		}
		if p.Cmp(five) < 0 {
			continue
		}
		res, err := primroot.Find(p, rand, nil)
		if err != nil {
			return Params{}, err
		}
		if res.Verified() {
			return Params{P: p, G: res.G}, nil
		}
	}
	return Params{}, fmt.Errorf("elgamal: no %d-bit parameters with a verified generator: %w", bits, primality.ErrGenerationFailed)
}

// GenerateKey draws a private key x in [1, P-2].
func GenerateKey(rand io.Reader, pp Params) (*PrivateKey, error) {
	if err := pp.Check(); err != nil {
		return nil, err
	}
	x, err := rng.Int(rand, one, pp.order())
	if err != nil {
		return nil, err
	}
	return NewPrivateKey(pp, x)
}

// NewPrivateKey derives the key pair for a given secret x.
func NewPrivateKey(pp Params, x *big.Int) (*PrivateKey, error) {
	if err := pp.Check(); err != nil {
		return nil, err
	}
	if x.Sign() <= 0 || x.Cmp(pp.order()) >= 0 {
		return nil, errors.New("elgamal: private key out of range [1, P-2]")
	}
	return &PrivateKey{
		PublicKey: PublicKey{Params: pp, Y: modarith.ModPow(pp.G, x, pp.P)},
		X:         new(big.Int).Set(x),
	}, nil
}

// Encrypt encrypts m in [1, P) with a fresh ephemeral key.
func (pub *PublicKey) Encrypt(rand io.Reader, m *big.Int) (Ciphertext, error) {
	y, err := rng.Int(rand, one, pub.order())
	if err != nil {
		return Ciphertext{}, err
	}
	return pub.EncryptWithEphemeral(m, y)
}

// EncryptWithEphemeral returns c1 = G^y, c2 = m * Y^y mod P.
func (pub *PublicKey) EncryptWithEphemeral(m, y *big.Int) (Ciphertext, error) {
	if m.Sign() <= 0 || m.Cmp(pub.P) >= 0 {
		return Ciphertext{}, errors.New("elgamal: message out of range [1, P)")
	}
	c1 := modarith.ModPow(pub.G, y, pub.P)
	c2 := modarith.ModPow(pub.Y, y, pub.P)
	c2.Mul(c2, m)
	c2.Mod(c2, pub.P)
	return Ciphertext{C1: c1, C2: c2}, nil
}

// Decrypt recovers the plaintext of ct.
func (priv *PrivateKey) Decrypt(ct Ciphertext) (*big.Int, error) {
	_, m, err := Decrypt(priv.PublicKey.P, priv.PublicKey.G, priv.X, ct.C1, ct.C2)
	return m, err
}

// Decrypt recomputes the public key h = g^x mod p and recovers
// m = c2 * (c1^x)^-1 mod p. A shared secret with no inverse mod p yields a
// *modarith.NoInverseError.
func Decrypt(p, g, x, c1, c2 *big.Int) (h, m *big.Int, err error) {
	if p.Cmp(two) < 0 {
		return nil, nil, fmt.Errorf("%w: modulus %s is below 2", ErrInvalidParams, p)
	}
	h = modarith.ModPow(g, x, p)
	s := modarith.ModPow(c1, x, p)
	sInv, err := modarith.ModInverse(s, p)
	if err != nil {
		return nil, nil, fmt.Errorf("elgamal: shared secret: %w", err)
	}
	m = sInv.Mul(sInv, c2)
	return h, m.Mod(m, p), nil
}

// SignWithK signs m with the ephemeral key k, which must be coprime to p-1:
// r = g^k mod p, s = (m - x*r) * k^-1 mod (p-1).
func SignWithK(p, g, x, m, k *big.Int) (r, s *big.Int, err error) {
	pm1 := new(big.Int).Sub(p, one)
	kInv, err := modarith.ModInverse(k, pm1)
	if err != nil {
		return nil, nil, fmt.Errorf("elgamal: ephemeral key: %w", err)
	}
	r = modarith.ModPow(g, k, p)
	if r.Sign() == 0 {
		return nil, nil, ErrDegenerateSignature
	}

	s = new(big.Int).Mul(x, r)
	s.Sub(m, s)
	s.Mul(s, kInv)
	s.Mod(s, pm1)
	if s.Sign() == 0 {
		return nil, nil, ErrDegenerateSignature
	}
	return r, s, nil
}

// Sign signs m with a random ephemeral key, regenerating it when it is not
// invertible mod P-1 or yields a degenerate signature.
func (priv *PrivateKey) Sign(rand io.Reader, m *big.Int) (Signature, error) {
	pub := &priv.PublicKey
	if err := pub.Check(); err != nil {
		return Signature{}, err
	}
	pm1 := pub.order()
	for i := 0; i < signAttempts; i++ {
		// k in [2, P-2]
		k, err := rng.Int(rand, two, pm1)
		if err != nil {
			return Signature{}, err
		}
		r, s, err := SignWithK(pub.P, pub.G, priv.X, m, k)
		switch {
		case errors.Is(err, modarith.ErrNoInverse), errors.Is(err, ErrDegenerateSignature):
			continue
		case err != nil:
			return Signature{}, err
		}
		return Signature{R: r, S: s}, nil
	}
	return Signature{}, fmt.Errorf("elgamal: signing: %w", primality.ErrGenerationFailed)
}

// Verify checks the signature (r, s) of m under the public key y.
func Verify(p, g, y, m, r, s *big.Int) bool {
	if r.Sign() <= 0 || r.Cmp(p) >= 0 {
		return false
	}
	pm1 := new(big.Int).Sub(p, one)
	if s.Sign() <= 0 || s.Cmp(pm1) >= 0 {
		return false
	}
	if m.Sign() < 0 {
		return false
	}

	left := modarith.ModPow(g, m, p)
	right := modarith.ModPow(y, r, p)
	right.Mul(right, modarith.ModPow(r, s, p))
	right.Mod(right, p)
	return left.Cmp(right) == 0
}

// Verify checks sig over m.
func (pub *PublicKey) Verify(m *big.Int, sig Signature) bool {
	if sig.R == nil || sig.S == nil {
		return false
	}
	return Verify(pub.P, pub.G, pub.Y, m, sig.R, sig.S)
}
