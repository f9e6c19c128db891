// Package storage provides the BBolt catalog for sealfile.
//
// The catalog records every envelope sealfile writes so that envelopes can
// be checked for corruption without the passphrase, and decrypted output
// can be checked against the digest of the original plaintext.
//
// Database structure uses two buckets:
//   - config: format version, timestamps, catalog id (unencrypted)
//   - entries: one JSON Entry per envelope, keyed by envelope path
//
// Nothing secret is stored: digests are SHA-256 of data that is either
// already public (the envelope) or protected by the envelope itself.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
