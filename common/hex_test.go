package common

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

const testHashHex = "f32039b06e834b65e6b1af17fd0217100176f14a3d0e4bed4becbe5058544415"

func TestHexToBytes(t *testing.T) {
	b, err := HexToBytes(testHashHex)
	require.NoError(t, err)
	require.Len(t, b, 32)
	require.Equal(t,
		"8yA5sG6DS2Xmsa8X/QIXEAF28Uo9DkvtS+y+UFhURBU=",
		base64.StdEncoding.EncodeToString(b))

	// Odd length is rejected.
	_, err = HexToBytes("abc")
	require.Error(t, err)

	// Non-hex digits are rejected.
	_, err = HexToBytes("zz")
	require.Error(t, err)
}

func TestHexToHash(t *testing.T) {
	hash, err := HexToHash(testHashHex)
	require.NoError(t, err)
	require.Equal(t, testHashHex, hash.String())

	// A payment hash must be exactly 32 bytes.
	_, err = HexToHash("0102")
	require.Error(t, err)
}

func TestHexToPreimage(t *testing.T) {
	preimage, err := HexToPreimage(testHashHex)
	require.NoError(t, err)
	require.Equal(t, testHashHex, preimage.String())

	_, err = HexToPreimage("0102")
	require.Error(t, err)
}

func TestNewPubKeyFromStr(t *testing.T) {
	// The secp256k1 generator point.
	const keyHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

	key, err := NewPubKeyFromStr(keyHex)
	require.NoError(t, err)
	require.Equal(t, keyHex, key.String())

	// Wrong length.
	_, err = NewPubKeyFromStr("0279be")
	require.Error(t, err)

	// Right length, but not a curve point.
	_, err = NewPubKeyFromStr(
		"020000000000000000000000000000000000000000000000000000000000000000")
	require.Error(t, err)
}
