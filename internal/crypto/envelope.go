package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	IVSize     = BlockSize              // CBC initialization vector size
	HeaderSize = SaltSize + IVSize      // salt || iv
	MinSize    = HeaderSize + BlockSize // Smallest decryptable envelope
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Envelope is the parsed form of an encrypted file. The slices alias the
// buffer passed to ParseEnvelope.
type Envelope struct {
	Salt       []byte
	IV         []byte
	Ciphertext []byte
}

// ParseEnvelope splits an envelope into its fields without decrypting it.
func ParseEnvelope(data []byte) (*Envelope, error) {
	if len(data) < MinSize || (len(data)-HeaderSize)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedEnvelope, len(data))
	}
	return &Envelope{
		Salt:       data[:SaltSize],
		IV:         data[SaltSize:HeaderSize],
		Ciphertext: data[HeaderSize:],
	}, nil
}

// Bytes serializes the envelope as salt || iv || ciphertext.
func (e *Envelope) Bytes() []byte {
	out := make([]byte, 0, len(e.Salt)+len(e.IV)+len(e.Ciphertext))
	out = append(out, e.Salt...)
	out = append(out, e.IV...)
	return append(out, e.Ciphertext...)
}

// Blocks returns the number of ciphertext blocks.
func (e *Envelope) Blocks() int {
	return len(e.Ciphertext) / BlockSize
}

// EnvelopeSize returns the envelope length produced for a plaintext of n bytes.
func EnvelopeSize(n int) int {
	return HeaderSize + BlockSize*(n/BlockSize+1)
}

// Encrypt seals plaintext under a key derived from passphrase, using the
// operating system's secure random source for salt and IV.
func Encrypt(passphrase, plaintext []byte) ([]byte, error) {
	return EncryptWithRand(rand.Reader, passphrase, plaintext)
}

// EncryptWithRand is Encrypt with an explicit random source. A short read
// from r is an error.
func EncryptWithRand(r io.Reader, passphrase, plaintext []byte) ([]byte, error) {
	out := make([]byte, EnvelopeSize(len(plaintext)))
	salt := out[:SaltSize]
	iv := out[SaltSize:HeaderSize]

	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	if _, err := io.ReadFull(r, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pad(plaintext)
	defer ClearBytes(padded)

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[HeaderSize:], padded)
	return out, nil
}

// Decrypt opens an envelope with the given passphrase. It returns
// ErrMalformedEnvelope when the length is invalid and ErrDecryptionFailed
// when the padding does not validate, which covers both a wrong passphrase
// and a corrupted ciphertext.
func Decrypt(passphrase, data []byte) ([]byte, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := make([]byte, len(env.Ciphertext))
	defer ClearBytes(padded)
	cipher.NewCBCDecrypter(block, env.IV).CryptBlocks(padded, env.Ciphertext)

	plaintext, err := unpad(padded)
	if err != nil {
		return nil, err
	}

	result := make([]byte, len(plaintext))
	copy(result, plaintext)
	return result, nil
}
