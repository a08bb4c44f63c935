package elgamal

import (
	"io"

	"elgamal_vectors/hashfunctions"
)

// SignMessage hashes msg into [0, P-1) and signs the digest.
func (priv *PrivateKey) SignMessage(rand io.Reader, k hashfunctions.Kind, msg []byte) (Signature, error) {
	m, err := hashfunctions.ToInt(k, msg, priv.PublicKey.order())
	if err != nil {
		return Signature{}, err
	}
	return priv.Sign(rand, m)
}

// VerifyMessage checks a signature produced by SignMessage.
func (pub *PublicKey) VerifyMessage(k hashfunctions.Kind, msg []byte, sig Signature) bool {
	m, err := hashfunctions.ToInt(k, msg, pub.order())
	if err != nil {
		return false
	}
	return pub.Verify(m, sig)
}
