// Package core provides the sealfile file operations.
//
// Core operations include:
//   - EncryptFile: seal a file into file.enc and record it in the catalog
//   - DecryptFile: open file.enc, check it against the catalog, restore file
//   - VerifyFile: check an envelope's structure and digest without a password
//   - DiffFile: compare an envelope's contents with the local plaintext
//   - EncryptFiles/DecryptFiles: the same over many files with a worker pool
//   - Status: report catalog entries and git hygiene of plaintext sources
//
// When decrypting over an existing, different file, the conflict strategy
// decides between failing, overwriting, keeping the local file, or keeping
// both (the envelope's contents saved as .from-envelope).
package core
