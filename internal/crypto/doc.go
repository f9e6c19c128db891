// Package crypto implements the sealfile envelope.
//
// An envelope is salt(16) || iv(16) || ciphertext(N), N a non-zero multiple
// of 16, with no header or version byte.
//
// Encryption uses AES-256-CBC with:
//   - 32-byte key derived from the passphrase via PBKDF2
//   - 16-byte random IV per encryption operation
//   - PKCS#7 padding, always at least one byte
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt per encryption (stored unencrypted)
//   - 100,000 iterations
//
// There is no authentication tag. A wrong passphrase and a corrupted
// ciphertext both surface as ErrDecryptionFailed and are indistinguishable.
//
// Memory safety:
//   - Derived keys and padded buffers are zeroed before Encrypt/Decrypt return
//   - Use ClearBytes() to zero passphrases and plaintext after use
package crypto
