package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize         = 16     // Salt size in bytes
	KeySize          = 32     // AES-256 key size
	Iterations       = 100000 // PBKDF2 iterations
	MinPassphraseLen = 8      // Below this a passphrase is reported as weak
)

var (
	ErrInvalidSalt     = errors.New("invalid salt length")
	ErrEmptyPassphrase = errors.New("passphrase is empty")
	ErrShortPassphrase = errors.New("passphrase is weak")
)

// DeriveKey derives an encryption key from a passphrase and salt.
// The caller owns the returned key and should clear it after use.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}
	return pbkdf2.Key(passphrase, salt, Iterations, KeySize, sha256.New), nil
}

// PassphraseWarning reports passphrases that derive a key but should be
// flagged to the user. It returns nil for acceptable passphrases.
func PassphraseWarning(passphrase []byte) error {
	switch {
	case len(passphrase) == 0:
		return ErrEmptyPassphrase
	case len(passphrase) < MinPassphraseLen:
		return fmt.Errorf("%w: use at least %d characters", ErrShortPassphrase, MinPassphraseLen)
	}
	return nil
}
