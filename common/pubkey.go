package common

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

const PubKeySize = 33

// PubKey is a serialized compressed secp256k1 public key identifying a node.
type PubKey [PubKeySize]byte

// NewPubKeyFromBytes returns a new PubKey based on a serialized pubkey in a
// byte slice. The key is required to be a valid point on the secp256k1 curve.
func NewPubKeyFromBytes(b []byte) (PubKey, error) {
	if len(b) != PubKeySize {
		return PubKey{}, fmt.Errorf("invalid PubKey length of %v, "+
			"want %v", len(b), PubKeySize)
	}

	if _, err := btcec.ParsePubKey(b); err != nil {
		return PubKey{}, fmt.Errorf("invalid PubKey: %w", err)
	}

	var v PubKey
	copy(v[:], b)

	return v, nil
}

// NewPubKeyFromStr returns a new PubKey given its hex-encoded string format.
func NewPubKeyFromStr(v string) (PubKey, error) {
	if len(v) != PubKeySize*2 {
		return PubKey{}, fmt.Errorf("invalid PubKey string length of "+
			"%v, want %v", len(v), PubKeySize*2)
	}

	b, err := HexToBytes(v)
	if err != nil {
		return PubKey{}, err
	}

	return NewPubKeyFromBytes(b)
}

// String returns the hex-encoding of the serialized compressed public key.
func (v PubKey) String() string {
	return fmt.Sprintf("%x", v[:])
}
