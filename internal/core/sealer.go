package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/illarion/sealfile/internal/crypto"
	"github.com/illarion/sealfile/internal/logger"
	"github.com/illarion/sealfile/internal/security"
	"github.com/illarion/sealfile/internal/storage"
)

const (
	EnvelopeExt    = ".enc"
	DecryptedExt   = ".dec"
	BothSuffix     = ".from-envelope"
	FilePermSecure = 0600 // File: owner rw only
	MaxBothCopies  = 100  // Max numbered .from-envelope.N copies
)

var (
	ErrNotRegular   = errors.New("not a regular file")
	ErrOutputExists = errors.New("output file already exists")
	ErrIntegrity    = errors.New("envelope does not match catalog digest")
	ErrNoCatalog    = errors.New("no catalog")
)

// FileError records the operation and path that failed
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ConflictStrategy decides what DecryptFile does when the output exists
// with different content
type ConflictStrategy int

const (
	StrategyAbort     ConflictStrategy = iota // Fail with ErrOutputExists
	StrategyOverwrite                         // Replace the local file
	StrategyKeepLocal                         // Leave the local file, skip
	StrategyKeepBoth                          // Write next to it as .from-envelope
)

// Options configures a Sealer
type Options struct {
	Catalog  string // Catalog path relative to root, empty disables the catalog
	Force    bool   // Overwrite existing envelopes on encrypt
	Remove   bool   // Remove the input after a successful operation
	Conflict ConflictStrategy
	Logger   logger.Logger
}

// Result describes one completed encrypt or decrypt
type Result struct {
	Input        string
	Output       string
	PlainSize    int64
	EnvelopeSize int64
	Digest       string // SHA-256 of the envelope
	Skipped      bool   // Decrypt left an existing output in place
	Removed      bool   // Input was removed
}

// Sealer encrypts and decrypts files confined to a working root
type Sealer struct {
	validator *security.PathValidator
	opts      Options
	log       logger.Logger

	mu sync.Mutex
	db *storage.Storage
}

// New creates a Sealer rooted at root
func New(root string, opts Options) (*Sealer, error) {
	validator, err := security.New(root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Sealer{
		validator: validator,
		opts:      opts,
		log:       log,
	}, nil
}

// Close releases the catalog and the root handle
func (s *Sealer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	if s.validator != nil {
		errs = append(errs, s.validator.Close())
	}
	return errors.Join(errs...)
}

// Root returns the absolute working root
func (s *Sealer) Root() string {
	return s.validator.RootPath()
}

// catalog returns the open catalog. With create false a missing catalog
// file yields (nil, nil); a disabled catalog always does.
func (s *Sealer) catalog(create bool) (*storage.Storage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil || s.opts.Catalog == "" {
		return s.db, nil
	}

	if !create {
		if _, err := s.validator.StatInRoot(s.opts.Catalog); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to stat catalog: %w", err)
		}
	}

	db, err := storage.Open(s.validator.Abs(s.opts.Catalog))
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}
	if create {
		if _, err := db.GetOrCreateCatalogID(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize catalog: %w", err)
		}
	}

	s.db = db
	return db, nil
}

// secureFileMode masks a file mode to preserve execute for owner only, removes group/other.
// Returns FilePermSecure (0600) if the result would be zero.
func secureFileMode(mode uint32) os.FileMode {
	secure := os.FileMode(mode) & 0700
	if secure == 0 {
		return FilePermSecure
	}
	return secure
}

// regularFile validates path and checks that it names a regular file.
func (s *Sealer) regularFile(op, path string) (string, os.FileInfo, error) {
	rel, err := s.validator.ValidateAndNormalize(path)
	if err != nil {
		return "", nil, &FileError{Op: op, Path: path, Err: err}
	}

	info, err := s.validator.StatInRoot(rel)
	if err != nil {
		return "", nil, &FileError{Op: op, Path: rel, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", nil, &FileError{Op: op, Path: rel, Err: ErrNotRegular}
	}
	return rel, info, nil
}

func (s *Sealer) exists(rel string) bool {
	_, err := s.validator.StatInRoot(rel)
	return err == nil
}

// EnvelopePath returns the envelope name for a plaintext path
func EnvelopePath(path string) string {
	return path + EnvelopeExt
}

// PlaintextPath returns the output name for an envelope path: the name
// without .enc, or the name with .dec appended when it has no .enc suffix.
func PlaintextPath(path string) string {
	if trimmed, ok := strings.CutSuffix(path, EnvelopeExt); ok && trimmed != "" && !strings.HasSuffix(trimmed, "/") {
		return trimmed
	}
	return path + DecryptedExt
}

// EncryptFile seals path into path.enc. The envelope is written atomically,
// recorded in the catalog, and only then is the input removed if
// Options.Remove is set.
func (s *Sealer) EncryptFile(ctx context.Context, path string, passphrase []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, info, err := s.regularFile("encrypt", path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(rel, EnvelopeExt) {
		s.log.Warnf("%s already has the %s extension, encrypting again", rel, EnvelopeExt)
	}

	out := EnvelopePath(rel)
	if !s.opts.Force && s.exists(out) {
		return nil, &FileError{Op: "encrypt", Path: out, Err: ErrOutputExists}
	}

	if warn := crypto.PassphraseWarning(passphrase); warn != nil {
		s.log.Warnf("%s", warn)
	}

	db, err := s.catalog(true)
	if err != nil {
		return nil, err
	}

	data, err := s.validator.ReadFileInRoot(rel)
	if err != nil {
		return nil, &FileError{Op: "encrypt", Path: rel, Err: err}
	}
	defer crypto.ClearBytes(data)

	s.log.Debugf("encrypting %s (%d bytes)", rel, len(data))
	envelope, err := crypto.Encrypt(passphrase, data)
	if err != nil {
		return nil, &FileError{Op: "encrypt", Path: rel, Err: err}
	}

	if err := s.validator.WriteFileAtomic(out, envelope, FilePermSecure); err != nil {
		return nil, &FileError{Op: "encrypt", Path: out, Err: err}
	}

	result := &Result{
		Input:        rel,
		Output:       out,
		PlainSize:    int64(len(data)),
		EnvelopeSize: int64(len(envelope)),
		Digest:       crypto.Digest(envelope),
	}

	if db != nil {
		entry := storage.Entry{
			Envelope:       out,
			Source:         rel,
			PlainSize:      result.PlainSize,
			EnvelopeSize:   result.EnvelopeSize,
			EnvelopeDigest: result.Digest,
			Mode:           uint32(info.Mode().Perm()),
			Sealed:         time.Now(),
		}
		if err := db.Put(entry); err != nil {
			// Do not leave an envelope the catalog does not know about
			if rmErr := s.validator.RemoveInRoot(out); rmErr != nil {
				s.log.Warnf("cannot remove %s after catalog failure: %v", out, rmErr)
			}
			return nil, &FileError{Op: "encrypt", Path: out, Err: fmt.Errorf("failed to update catalog: %w", err)}
		}
	}

	if s.opts.Remove {
		if err := s.validator.RemoveInRoot(rel); err != nil {
			s.log.Warnf("cannot remove %s: %v", rel, err)
		} else {
			result.Removed = true
		}
	}

	return result, nil
}

// lookup returns the catalog entry for an envelope, or nil when there is
// no catalog or no entry.
func (s *Sealer) lookup(envelope string) (*storage.Entry, error) {
	db, err := s.catalog(false)
	if err != nil || db == nil {
		return nil, err
	}
	entry, err := db.Get(envelope)
	if errors.Is(err, storage.ErrEntryNotFound) {
		return nil, nil
	}
	return entry, err
}

// open reads and decrypts an envelope, checking it against the catalog
// when an entry exists.
func (s *Sealer) open(op, rel string, passphrase []byte) ([]byte, *storage.Entry, error) {
	data, err := s.validator.ReadFileInRoot(rel)
	if err != nil {
		return nil, nil, &FileError{Op: op, Path: rel, Err: err}
	}

	entry, err := s.lookup(rel)
	if err != nil {
		return nil, nil, err
	}
	if entry != nil && !crypto.DigestEqual(crypto.Digest(data), entry.EnvelopeDigest) {
		return nil, nil, &FileError{Op: op, Path: rel, Err: ErrIntegrity}
	}

	plaintext, err := crypto.Decrypt(passphrase, data)
	if err != nil {
		return nil, nil, &FileError{Op: op, Path: rel, Err: err}
	}

	// Padding alone lets roughly one wrong key in 256 through
	if entry != nil && int64(len(plaintext)) != entry.PlainSize {
		crypto.ClearBytes(plaintext)
		return nil, nil, &FileError{Op: op, Path: rel, Err: crypto.ErrDecryptionFailed}
	}

	return plaintext, entry, nil
}

// CheckPassword reports whether passphrase opens the envelope at path.
// Nothing is written.
func (s *Sealer) CheckPassword(ctx context.Context, path string, passphrase []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel, _, err := s.regularFile("check", path)
	if err != nil {
		return err
	}

	plaintext, _, err := s.open("check", rel, passphrase)
	if err != nil {
		return err
	}
	crypto.ClearBytes(plaintext)
	return nil
}

// DecryptFile opens path with passphrase and writes the plaintext next to
// it. An existing output is handled according to Options.Conflict.
func (s *Sealer) DecryptFile(ctx context.Context, path string, passphrase []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, info, err := s.regularFile("decrypt", path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(rel, EnvelopeExt) {
		s.log.Warnf("%s doesn't have the %s extension", rel, EnvelopeExt)
	}

	plaintext, entry, err := s.open("decrypt", rel, passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	result := &Result{
		Input:        rel,
		Output:       PlaintextPath(rel),
		PlainSize:    int64(len(plaintext)),
		EnvelopeSize: info.Size(),
	}

	mode := os.FileMode(FilePermSecure)
	if entry != nil {
		mode = secureFileMode(entry.Mode)
		result.Digest = entry.EnvelopeDigest
	}

	out, skip, err := s.resolveConflict(result.Output, plaintext)
	if err != nil {
		return nil, err
	}
	result.Output = out
	result.Skipped = skip

	if !skip {
		if err := s.validator.WriteFileAtomic(out, plaintext, mode); err != nil {
			return nil, &FileError{Op: "decrypt", Path: out, Err: err}
		}
	}

	if s.opts.Remove && !skip {
		if err := s.validator.RemoveInRoot(rel); err != nil {
			s.log.Warnf("cannot remove %s: %v", rel, err)
		} else {
			result.Removed = true
			if err := s.forget(rel); err != nil {
				s.log.Warnf("cannot remove %s from catalog: %v", rel, err)
			}
		}
	}

	return result, nil
}

// resolveConflict picks where decrypted data goes when out may already
// exist. skip reports that nothing should be written.
func (s *Sealer) resolveConflict(out string, plaintext []byte) (string, bool, error) {
	local, err := s.validator.ReadFileInRoot(out)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, false, nil
		}
		return "", false, &FileError{Op: "decrypt", Path: out, Err: err}
	}
	defer crypto.ClearBytes(local)

	if CompareFiles(local, plaintext) {
		s.log.Debugf("%s unchanged", out)
		return out, true, nil
	}

	switch s.opts.Conflict {
	case StrategyOverwrite:
		return out, false, nil
	case StrategyKeepLocal:
		s.log.Infof("%s differs from envelope, keeping local version", out)
		return out, true, nil
	case StrategyKeepBoth:
		both := out + BothSuffix
		for i := 1; s.exists(both); i++ {
			if i >= MaxBothCopies {
				return "", false, &FileError{Op: "decrypt", Path: out, Err: fmt.Errorf("too many copies (max %d)", MaxBothCopies)}
			}
			both = fmt.Sprintf("%s%s.%d", out, BothSuffix, i)
		}
		return both, false, nil
	default:
		return "", false, &FileError{Op: "decrypt", Path: out, Err: ErrOutputExists}
	}
}

// Verification is the outcome of VerifyFile
type Verification struct {
	Path      string
	Blocks    int
	Cataloged bool
	Entry     *storage.Entry
}

// VerifyFile checks an envelope without the passphrase: its structure
// always, and its digest when the catalog has an entry for it.
func (s *Sealer) VerifyFile(ctx context.Context, path string) (*Verification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, _, err := s.regularFile("verify", path)
	if err != nil {
		return nil, err
	}

	data, err := s.validator.ReadFileInRoot(rel)
	if err != nil {
		return nil, &FileError{Op: "verify", Path: rel, Err: err}
	}

	env, err := crypto.ParseEnvelope(data)
	if err != nil {
		return nil, &FileError{Op: "verify", Path: rel, Err: err}
	}

	v := &Verification{Path: rel, Blocks: env.Blocks()}

	entry, err := s.lookup(rel)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return v, nil
	}
	v.Cataloged = true
	v.Entry = entry

	if int64(len(data)) != entry.EnvelopeSize || !crypto.DigestEqual(crypto.Digest(data), entry.EnvelopeDigest) {
		return v, &FileError{Op: "verify", Path: rel, Err: ErrIntegrity}
	}
	return v, nil
}

func (s *Sealer) forget(rel string) error {
	db, err := s.catalog(false)
	if err != nil || db == nil {
		return err
	}
	return db.Delete(rel)
}

// Forget removes catalog entries for the given envelope paths. The
// envelopes themselves are left alone.
func (s *Sealer) Forget(ctx context.Context, paths []string) ([]string, error) {
	db, err := s.catalog(false)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, ErrNoCatalog
	}

	var forgotten []string
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return forgotten, err
		}
		rel, err := s.validator.ValidateAndNormalize(path)
		if err != nil {
			return forgotten, &FileError{Op: "forget", Path: path, Err: err}
		}
		if _, err := db.Get(rel); err != nil {
			if errors.Is(err, storage.ErrEntryNotFound) {
				s.log.Warnf("%s is not in the catalog", rel)
				continue
			}
			return forgotten, err
		}
		if err := db.Delete(rel); err != nil {
			return forgotten, &FileError{Op: "forget", Path: rel, Err: err}
		}
		forgotten = append(forgotten, rel)
	}
	return forgotten, nil
}

// CatalogID returns the catalog id used as the keyring account, creating
// the catalog and id when create is set.
func (s *Sealer) CatalogID(create bool) (string, error) {
	db, err := s.catalog(create)
	if err != nil {
		return "", err
	}
	if db == nil {
		return "", ErrNoCatalog
	}
	if create {
		return db.GetOrCreateCatalogID()
	}
	return db.GetCatalogID()
}

// Compact compacts the catalog database
func (s *Sealer) Compact() error {
	db, err := s.catalog(false)
	if err != nil {
		return err
	}
	if db == nil {
		return ErrNoCatalog
	}
	return db.Compact()
}

// ExpandPatterns resolves glob patterns relative to the root. A pattern
// without matches is kept as a literal path so the caller reports it.
func (s *Sealer) ExpandPatterns(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		abs := pattern
		if !filepath.IsAbs(pattern) {
			abs = filepath.Join(s.Root(), pattern)
		}

		matches, err := filepath.Glob(abs)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{abs}
		}

		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}
