// Package commitment proves, without revealing the message, that a MiMC
// digest used to sign a message opens to a message the prover knows.
//
// The digest is the one computed by hashfunctions.Sum with the MiMC kind, so
// a signature made by elgamal.SignMessage over that digest can be checked
// against a proof instead of the plaintext message.
package commitment

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/hash/mimc"

	"elgamal_vectors/hashfunctions"
)

// Circuit checks Digest = MiMC(Length, Chunks...).
type Circuit struct {
	Length frontend.Variable
	Chunks []frontend.Variable
	Digest frontend.Variable `gnark:",public"`
}

func (circuit *Circuit) Define(api frontend.API) error {
	hfunc, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	hfunc.Write(circuit.Length)
	hfunc.Write(circuit.Chunks...)
	api.AssertIsEqual(hfunc.Sum(), circuit.Digest)
	return nil
}

// NumChunks is the number of field elements a message of msgLen bytes is
// packed into.
func NumChunks(msgLen int) int {
	return (msgLen + hashfunctions.ChunkSize - 1) / hashfunctions.ChunkSize
}

// Keys are the Groth16 keys for messages of a fixed number of chunks.
type Keys struct {
	chunks int
	ccs    frontend.CompiledConstraintSystem
	pk     groth16.ProvingKey
	vk     groth16.VerifyingKey
}

// Setup compiles the circuit for messages of msgLen bytes and runs the
// Groth16 setup. Messages with the same chunk count share keys.
func Setup(msgLen int) (*Keys, error) {
	var circuit Circuit
	circuit.Chunks = make([]frontend.Variable, NumChunks(msgLen))

	ccs, err := frontend.Compile(ecc.BN254, r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}
	return &Keys{chunks: len(circuit.Chunks), ccs: ccs, pk: pk, vk: vk}, nil
}

// Constraints is the size of the compiled circuit.
func (k *Keys) Constraints() int {
	return k.ccs.GetNbConstraints()
}

// Prove returns the MiMC digest of msg and a proof that it opens to msg.
func (k *Keys) Prove(msg []byte) (groth16.Proof, []byte, error) {
	chunks := hashfunctions.Chunks(msg)
	if len(chunks) != k.chunks {
		return nil, nil, fmt.Errorf("commitment: message has %d chunks, keys expect %d", len(chunks), k.chunks)
	}
	digest, err := hashfunctions.Sum(hashfunctions.MiMC, msg)
	if err != nil {
		return nil, nil, err
	}

	var assignment Circuit
	assignment.Length = fr.NewElement(uint64(len(msg)))
	assignment.Chunks = make([]frontend.Variable, len(chunks))
	for i := range chunks {
		assignment.Chunks[i] = chunks[i]
	}
	assignment.Digest = digest

	witness, err := frontend.NewWitness(&assignment, ecc.BN254)
	if err != nil {
		return nil, nil, err
	}
	proof, err := groth16.Prove(k.ccs, k.pk, witness)
	if err != nil {
		return nil, nil, err
	}
	return proof, digest, nil
}

// Verify checks a proof for the given digest.
func (k *Keys) Verify(proof groth16.Proof, digest []byte) error {
	// secret fields are not read for a public witness
	var assignment Circuit
	assignment.Length = 0
	assignment.Chunks = make([]frontend.Variable, k.chunks)
	for i := range assignment.Chunks {
		assignment.Chunks[i] = 0
	}
	assignment.Digest = digest

	publicWitness, err := frontend.NewWitness(&assignment, ecc.BN254, frontend.PublicOnly())
	if err != nil {
		return err
	}
	return groth16.Verify(proof, k.vk, publicWitness)
}
