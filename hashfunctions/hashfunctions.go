package hashfunctions

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/hash"
	"golang.org/x/crypto/blake2b"
)

// Kind selects the hash used to map a message to a signing integer.
type Kind int

const (
	// Blake2b is BLAKE2b-512.
	Blake2b Kind = iota
	// MiMC is MiMC over the BN254 scalar field.
	MiMC
)

// ChunkSize keeps every chunk strictly below the BN254 scalar modulus.
const ChunkSize = fr.Bytes - 1

func (k Kind) String() string {
	switch k {
	case Blake2b:
		return "blake2b"
	case MiMC:
		return "mimc"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "blake2b", "":
		return Blake2b, nil
	case "mimc":
		return MiMC, nil
	}
	return 0, fmt.Errorf("hashfunctions: unknown hash %q", s)
}

// Sum hashes msg with the given kind.
func Sum(k Kind, msg []byte) ([]byte, error) {
	switch k {
	case Blake2b:
		h := blake2b.Sum512(msg)
		return h[:], nil
	case MiMC:
		return mimcSum(msg), nil
	}
	return nil, fmt.Errorf("hashfunctions: unknown hash %v", k)
}

// Chunks packs msg into field elements of 31 bytes each, the last one
// possibly shorter. The empty message has no chunks.
func Chunks(msg []byte) []fr.Element {
	out := make([]fr.Element, 0, (len(msg)+ChunkSize-1)/ChunkSize)
	for i := 0; i < len(msg); i += ChunkSize {
		end := i + ChunkSize
		if end > len(msg) {
			end = len(msg)
		}
		var e fr.Element
		e.SetBytes(msg[i:end])
		out = append(out, e)
	}
	return out
}

// mimcSum absorbs the message length followed by the chunks of the message.
func mimcSum(msg []byte) []byte {
	hfunc := hash.MIMC_BN254.New()

	length := fr.NewElement(uint64(len(msg)))
	hfunc.Write(length.Marshal())
	for _, e := range Chunks(msg) {
		hfunc.Write(e.Marshal())
	}
	return hfunc.Sum(nil)
}

// ToInt hashes msg and reduces the digest modulo modulus.
func ToInt(k Kind, msg []byte, modulus *big.Int) (*big.Int, error) {
	if modulus.Sign() <= 0 {
		return nil, fmt.Errorf("hashfunctions: modulus must be positive")
	}
	d, err := Sum(k, msg)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(d)
	return n.Mod(n, modulus), nil
}
