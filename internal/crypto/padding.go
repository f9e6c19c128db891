package crypto

import (
	"crypto/aes"
	"crypto/subtle"
)

// BlockSize is the AES block size.
const BlockSize = aes.BlockSize

// pad returns a new slice holding data followed by PKCS#7 padding.
// Block-aligned input receives a full block of padding.
func pad(data []byte) []byte {
	k := BlockSize - len(data)%BlockSize
	padded := make([]byte, len(data)+k)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(k)
	}
	return padded
}

// unpad validates and strips PKCS#7 padding. The whole final block is
// inspected whatever the pad length so the work done does not depend on
// where the padding check fails.
func unpad(padded []byte) ([]byte, error) {
	n := len(padded)
	if n == 0 || n%BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}

	k := int(padded[n-1])
	good := subtle.ConstantTimeLessOrEq(1, k) & subtle.ConstantTimeLessOrEq(k, BlockSize)
	for i := 0; i < BlockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i+1, k)
		match := subtle.ConstantTimeByteEq(padded[n-1-i], byte(k))
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}
	if good != 1 {
		return nil, ErrDecryptionFailed
	}

	return padded[:n-k], nil
}
