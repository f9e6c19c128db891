package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/sealfile/internal/crypto"
)

const (
	BinarySampleSize   = 8192 // Bytes to sample for text/binary detection
	BinaryThresholdPct = 10   // Max % non-printable chars for text files
)

// DetectFileType determines if a file is likely text or binary.
// Returns true if the file appears to be text.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary (executables, images, etc.)
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func DetectFileType(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sample := data
	if len(sample) > BinarySampleSize {
		sample = sample[:BinarySampleSize]
	}

	if !utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		// Allow common whitespace: space, tab, newline, carriage return
		if (b < 32 && b != 9 && b != 10 && b != 13) || b == 127 {
			nonPrintable++
		}
	}

	threshold := len(sample) * BinaryThresholdPct / 100
	return nonPrintable <= threshold
}

// CompareFiles checks if two file contents are identical
// Returns true if files are identical (based on SHA-256 hash)
func CompareFiles(a, b []byte) bool {
	hashA := sha256.Sum256(a)
	hashB := sha256.Sum256(b)
	return bytes.Equal(hashA[:], hashB[:])
}

// GenerateUnifiedDiff generates a unified diff using go-diff library
// Returns the diff output, or empty string if files are identical
func GenerateUnifiedDiff(path string, sealedData, localData []byte) (string, error) {
	if CompareFiles(sealedData, localData) {
		return "", nil
	}

	if !DetectFileType(sealedData) || !DetectFileType(localData) {
		return fmt.Sprintf("Binary file %s has changed\n", path), nil
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	sealedStr, localStr := string(sealedData), string(localData)
	a, b, lineArray := dmp.DiffLinesToChars(sealedStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(sealedStr, diffs)
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", path))
	result.WriteString(fmt.Sprintf("+++ b/%s\n", path))
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}

// DiffFile decrypts an envelope in memory and diffs it against its local
// plaintext. A missing plaintext is diffed as empty.
func (s *Sealer) DiffFile(ctx context.Context, path string, passphrase []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel, _, err := s.regularFile("diff", path)
	if err != nil {
		return "", err
	}

	sealed, _, err := s.open("diff", rel, passphrase)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(sealed)

	plainPath := PlaintextPath(rel)
	local, err := s.validator.ReadFileInRoot(plainPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", &FileError{Op: "diff", Path: plainPath, Err: err}
	}
	defer crypto.ClearBytes(local)

	return GenerateUnifiedDiff(plainPath, sealed, local)
}
