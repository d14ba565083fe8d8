package common

import (
	"encoding/hex"
	"fmt"

	"github.com/lightningnetwork/lnd/lntypes"
)

// HexToBytes decodes a hex-encoded identifier as it appears in lnd's rpc
// responses (payment hashes, preimages, description hashes). The input must
// have an even length and consist of hex digits only.
func HexToBytes(v string) ([]byte, error) {
	if len(v)%2 != 0 {
		return nil, fmt.Errorf("invalid hex string length %v", len(v))
	}

	b, err := hex.DecodeString(v)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// HexToHash decodes a hex-encoded payment hash.
func HexToHash(v string) (lntypes.Hash, error) {
	b, err := HexToBytes(v)
	if err != nil {
		return lntypes.Hash{}, err
	}

	return lntypes.MakeHash(b)
}

// HexToPreimage decodes a hex-encoded payment preimage.
func HexToPreimage(v string) (lntypes.Preimage, error) {
	b, err := HexToBytes(v)
	if err != nil {
		return lntypes.Preimage{}, err
	}

	return lntypes.MakePreimage(b)
}
