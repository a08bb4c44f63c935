// Package solver performs the computation an external test-case program is
// expected to perform: it reads a reversed-hex input file and writes the
// reversed-hex answer.
package solver

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"elgamal_vectors/dh"
	"elgamal_vectors/elgamal"
	"elgamal_vectors/primroot"
	"elgamal_vectors/revhex"
)

// Kind selects a test-case family.
type Kind int

const (
	// Decrypt: p, g, x, c1, c2 -> h, m.
	Decrypt Kind = iota
	// Verify: p, g, y, m, r, s -> 1 when the signature is valid, 0 otherwise.
	Verify
	// DH: p, g, a, b -> A, B, K.
	DH
	// PrimRoot: p, factor count, factors of p-1 on one line, g -> 1 or 0.
	PrimRoot
)

// Kinds lists every test-case family.
func Kinds() []Kind {
	return []Kind{Decrypt, Verify, DH, PrimRoot}
}

func (k Kind) String() string {
	switch k {
	case Decrypt:
		return "decrypt"
	case Verify:
		return "verify"
	case DH:
		return "dh"
	case PrimRoot:
		return "primroot"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String. A few long forms are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decrypt", "decryption":
		return Decrypt, nil
	case "verify", "signature":
		return Verify, nil
	case "dh", "exchange":
		return DH, nil
	case "primroot", "primitive-root":
		return PrimRoot, nil
	}
	return 0, fmt.Errorf("solver: unknown kind %q", s)
}

// Solve reads one input of the given kind from in and writes the answer to
// out.
func Solve(kind Kind, in io.Reader, out io.Writer) error {
	switch kind {
	case Decrypt:
		return decrypt(in, out)
	case Verify:
		return verify(in, out)
	case DH:
		return exchange(in, out)
	case PrimRoot:
		return primitiveRoot(in, out)
	}
	return fmt.Errorf("solver: unknown kind %v", kind)
}

// SolveFile is Solve over two paths. The output file is created or
// truncated.
func SolveFile(kind Kind, inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	if err := Solve(kind, in, bw); err != nil {
		out.Close()
		return fmt.Errorf("%s: %w", inPath, err)
	}
	if err := bw.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func decrypt(in io.Reader, out io.Writer) error {
	f, err := revhex.ReadFields(in, 5)
	if err != nil {
		return err
	}
	h, m, err := elgamal.Decrypt(f[0], f[1], f[2], f[3], f[4])
	if err != nil {
		return err
	}
	return revhex.WriteFields(out, h, m)
}

func verify(in io.Reader, out io.Writer) error {
	f, err := revhex.ReadFields(in, 6)
	if err != nil {
		return err
	}
	return writeBool(out, elgamal.Verify(f[0], f[1], f[2], f[3], f[4], f[5]))
}

func exchange(in io.Reader, out io.Writer) error {
	p, g, a, b, err := dh.ReadInput(in)
	if err != nil {
		return err
	}
	e, err := dh.Compute(p, g, a, b)
	if err != nil {
		return err
	}
	return e.WriteOutput(out)
}

// primitiveRoot reads its four lines by position: the factor line is empty
// when p-1 has no prime factors.
func primitiveRoot(in io.Reader, out io.Writer) error {
	lines, err := revhex.ReadAllLines(in)
	if err != nil {
		return err
	}
	if len(lines) < 4 {
		return &revhex.ShortInputError{Want: 4, Got: len(lines)}
	}
	p, err := revhex.Decode(lines[0])
	if err != nil {
		return fmt.Errorf("field 1: %w", err)
	}
	n, err := revhex.Decode(lines[1])
	if err != nil {
		return fmt.Errorf("field 2: %w", err)
	}
	factors, err := revhex.DecodeList(lines[2])
	if err != nil {
		return fmt.Errorf("field 3: %w", err)
	}
	g, err := revhex.Decode(lines[3])
	if err != nil {
		return fmt.Errorf("field 4: %w", err)
	}
	if !n.IsInt64() || n.Int64() != int64(len(factors)) {
		return fmt.Errorf("solver: factor count %s does not match %d listed factors", n, len(factors))
	}
	if !covers(new(big.Int).Sub(p, big.NewInt(1)), factors) {
		return fmt.Errorf("solver: factors do not cover p-1")
	}
	return writeBool(out, primroot.IsGenerator(g, p, factors))
}

// covers reports whether n is a product of powers of the given factors.
func covers(n *big.Int, factors []*big.Int) bool {
	if n.Sign() <= 0 {
		return false
	}
	rest := new(big.Int).Set(n)
	q, r := new(big.Int), new(big.Int)
	for _, f := range factors {
		if f.Cmp(big.NewInt(2)) < 0 {
			return false
		}
		for {
			q.QuoRem(rest, f, r)
			if r.Sign() != 0 {
				break
			}
			rest.Set(q)
		}
	}
	return rest.Cmp(big.NewInt(1)) == 0
}

func writeBool(w io.Writer, ok bool) error {
	v := big.NewInt(0)
	if ok {
		v.SetInt64(1)
	}
	return revhex.WriteFields(w, v)
}
