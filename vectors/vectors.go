// Package vectors produces test cases for the solver contract: keyed
// instances, their reversed-hex input files and the expected outputs.
//
// Every vector is checked against solver.Solve before it is returned, so a
// suite on disk is always consistent with the reference computation.
package vectors

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"

	"elgamal_vectors/dh"
	"elgamal_vectors/elgamal"
	"elgamal_vectors/log"
	"elgamal_vectors/primroot"
	"elgamal_vectors/revhex"
	"elgamal_vectors/rng"
	"elgamal_vectors/solver"
)

// ErrSelfCheck is returned when a freshly built vector disagrees with the
// reference solver.
var ErrSelfCheck = errors.New("vectors: self-check failed")

// MinBits is the smallest prime size a vector can be built for.
const MinBits = 3

var one = big.NewInt(1)

// Vector is a single test case.
type Vector interface {
	Kind() solver.Kind
	WriteInput(w io.Writer) error
	WriteOutput(w io.Writer) error
}

// Generator builds vectors. The zero value is usable: it draws from
// crypto/rand with the default Miller-Rabin rounds and search bounds.
type Generator struct {
	Rand        io.Reader
	Rounds      int
	MaxAttempts int
	Logger      log.Logger
}

func (g *Generator) rand() io.Reader {
	if g.Rand == nil {
		return rng.Default()
	}
	return g.Rand
}

func (g *Generator) logger() log.Logger {
	if g.Logger == nil {
		return log.DefaultLogger()
	}
	return g.Logger
}

func (g *Generator) params(bits int) (elgamal.Params, error) {
	if bits < MinBits {
		return elgamal.Params{}, fmt.Errorf("vectors: %d bits is below the minimum of %d", bits, MinBits)
	}
	return elgamal.GenerateParams(g.rand(), bits, g.Rounds, g.MaxAttempts)
}

func (g *Generator) key(bits int) (*elgamal.PrivateKey, error) {
	pp, err := g.params(bits)
	if err != nil {
		return nil, err
	}
	return elgamal.GenerateKey(g.rand(), pp)
}

// DecryptionVector is an encrypted message together with the key that opens
// it.
type DecryptionVector struct {
	Key        *elgamal.PrivateKey
	M          *big.Int
	Ciphertext elgamal.Ciphertext
}

func (v *DecryptionVector) Kind() solver.Kind { return solver.Decrypt }

// WriteInput writes p, g, x, c1, c2.
func (v *DecryptionVector) WriteInput(w io.Writer) error {
	pub := v.Key.PublicKey
	return revhex.WriteFields(w, pub.P, pub.G, v.Key.X, v.Ciphertext.C1, v.Ciphertext.C2)
}

// WriteOutput writes h, m.
func (v *DecryptionVector) WriteOutput(w io.Writer) error {
	return revhex.WriteFields(w, v.Key.PublicKey.Y, v.M)
}

// Decryption encrypts a random message in [1, p) under a fresh key.
func (g *Generator) Decryption(bits int) (*DecryptionVector, error) {
	priv, err := g.key(bits)
	if err != nil {
		return nil, err
	}
	m, err := rng.Int(g.rand(), one, priv.PublicKey.P)
	if err != nil {
		return nil, err
	}
	ct, err := priv.PublicKey.Encrypt(g.rand(), m)
	if err != nil {
		return nil, err
	}
	v := &DecryptionVector{Key: priv, M: m, Ciphertext: ct}
	return v, g.check(v, bits)
}

// SignatureVector is a signed message. When Valid is false the signature
// has been tampered with and must be rejected.
type SignatureVector struct {
	Key       elgamal.PublicKey
	M         *big.Int
	Signature elgamal.Signature
	Valid     bool
}

func (v *SignatureVector) Kind() solver.Kind { return solver.Verify }

// WriteInput writes p, g, y, m, r, s.
func (v *SignatureVector) WriteInput(w io.Writer) error {
	return revhex.WriteFields(w, v.Key.P, v.Key.G, v.Key.Y, v.M, v.Signature.R, v.Signature.S)
}

// WriteOutput writes 1 for a valid signature and 0 otherwise.
func (v *SignatureVector) WriteOutput(w io.Writer) error {
	return revhex.WriteFields(w, boolInt(v.Valid))
}

// Signature signs a random message in [1, p-1). With valid false, s is
// shifted by one within [1, p-2] so that verification fails.
func (g *Generator) Signature(bits int, valid bool) (*SignatureVector, error) {
	priv, err := g.key(bits)
	if err != nil {
		return nil, err
	}
	pub := priv.PublicKey
	pm1 := new(big.Int).Sub(pub.P, one)
	m, err := rng.Int(g.rand(), one, pm1)
	if err != nil {
		return nil, err
	}
	sig, err := priv.Sign(g.rand(), m)
	if err != nil {
		return nil, err
	}
	if !valid {
		s := new(big.Int).Add(sig.S, one)
		if s.Cmp(pm1) == 0 {
			s.SetInt64(1)
		}
		sig.S = s
	}
	v := &SignatureVector{Key: pub, M: m, Signature: sig, Valid: valid}
	return v, g.check(v, bits)
}

// ExchangeVector is a Diffie-Hellman exchange between the secrets A and B.
type ExchangeVector struct {
	Params   elgamal.Params
	A, B     *big.Int
	Exchange dh.Exchange
}

func (v *ExchangeVector) Kind() solver.Kind { return solver.DH }

// WriteInput writes p, g, a, b.
func (v *ExchangeVector) WriteInput(w io.Writer) error {
	return dh.WriteInput(w, v.Params.P, v.Params.G, v.A, v.B)
}

// WriteOutput writes the two public values and the shared secret.
func (v *ExchangeVector) WriteOutput(w io.Writer) error {
	return v.Exchange.WriteOutput(w)
}

// Exchange draws two secrets in [1, p-1).
func (g *Generator) Exchange(bits int) (*ExchangeVector, error) {
	pp, err := g.params(bits)
	if err != nil {
		return nil, err
	}
	pm1 := new(big.Int).Sub(pp.P, one)
	a, err := rng.Int(g.rand(), one, pm1)
	if err != nil {
		return nil, err
	}
	b, err := rng.Int(g.rand(), one, pm1)
	if err != nil {
		return nil, err
	}
	e, err := dh.Compute(pp.P, pp.G, a, b)
	if err != nil {
		return nil, err
	}
	v := &ExchangeVector{Params: pp, A: a, B: b, Exchange: e}
	return v, g.check(v, bits)
}

// PrimitiveRootVector asks whether G generates the group modulo P given the
// prime factors of P-1.
type PrimitiveRootVector struct {
	P         *big.Int
	Factors   []*big.Int
	G         *big.Int
	Generator bool
}

func (v *PrimitiveRootVector) Kind() solver.Kind { return solver.PrimRoot }

// WriteInput writes p, the factor count, the factors on one line, and g.
func (v *PrimitiveRootVector) WriteInput(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, revhex.Encode(v.P))
	fmt.Fprintln(bw, revhex.Encode(big.NewInt(int64(len(v.Factors)))))
	fmt.Fprintln(bw, revhex.EncodeList(v.Factors))
	fmt.Fprintln(bw, revhex.Encode(v.G))
	return bw.Flush()
}

// WriteOutput writes 1 when G is a generator and 0 otherwise.
func (v *PrimitiveRootVector) WriteOutput(w io.Writer) error {
	return revhex.WriteFields(w, boolInt(v.Generator))
}

// PrimitiveRoot picks a prime whose p-1 factors completely. With generator
// false the candidate is the square of a generator, which is a quadratic
// residue and never a generator.
func (g *Generator) PrimitiveRoot(bits int, generator bool) (*PrimitiveRootVector, error) {
	pp, err := g.params(bits)
	if err != nil {
		return nil, err
	}
	f := primroot.Factor(new(big.Int).Sub(pp.P, one), primroot.DefaultTrialLimit, g.rand())
	if !f.Complete {
		return nil, fmt.Errorf("vectors: p-1 did not factor for a verified %d-bit prime", bits)
	}
	cand := pp.G
	if !generator {
		cand = new(big.Int).Mul(pp.G, pp.G)
		cand.Mod(cand, pp.P)
	}
	v := &PrimitiveRootVector{P: pp.P, Factors: f.Primes, G: cand, Generator: generator}
	return v, g.check(v, bits)
}

// Vector builds the index-th case of a suite, counting from 1. Even indices
// of the verify and primroot kinds are negative cases.
func (g *Generator) Vector(kind solver.Kind, bits, index int) (Vector, error) {
	positive := index%2 == 1
	switch kind {
	case solver.Decrypt:
		return g.Decryption(bits)
	case solver.Verify:
		return g.Signature(bits, positive)
	case solver.DH:
		return g.Exchange(bits)
	case solver.PrimRoot:
		return g.PrimitiveRoot(bits, positive)
	}
	return nil, fmt.Errorf("vectors: unknown kind %v", kind)
}

// check runs the reference solver on the input of v and compares with the
// expected output.
func (g *Generator) check(v Vector, bits int) error {
	var in, want, got bytes.Buffer
	if err := v.WriteInput(&in); err != nil {
		return err
	}
	if err := v.WriteOutput(&want); err != nil {
		return err
	}
	if err := solver.Solve(v.Kind(), &in, &got); err != nil {
		return fmt.Errorf("%w: %v", ErrSelfCheck, err)
	}
	if !bytes.Equal(want.Bytes(), got.Bytes()) {
		g.logger().Errorw("vector disagrees with solver", "kind", v.Kind(), "bits", bits,
			"expected", want.String(), "got", got.String())
		return fmt.Errorf("%w: %v vector of %d bits", ErrSelfCheck, v.Kind(), bits)
	}
	g.logger().Debugw("vector built", "kind", v.Kind(), "bits", bits)
	return nil
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
