package core

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/illarion/sealfile/internal/crypto"
	"github.com/illarion/sealfile/internal/git"
	"github.com/illarion/sealfile/internal/storage"
)

// EnvelopeState summarises an envelope against its catalog entry
type EnvelopeState string

const (
	StateOK       EnvelopeState = "ok"
	StateMissing  EnvelopeState = "missing"
	StateModified EnvelopeState = "modified"
)

// FileStatus is one catalog entry with what is currently on disk
type FileStatus struct {
	storage.Entry
	State         EnvelopeState
	SourcePresent bool // Plaintext still exists next to the envelope
}

// StatusInfo describes the catalog and everything it tracks
type StatusInfo struct {
	CatalogPath string
	CatalogID   string
	Created     time.Time
	Modified    time.Time
	Files       []FileStatus
	TotalPlain  int64
	Git         *git.Status
}

// Status reports every catalog entry without needing a password.
// It returns ErrNoCatalog when there is no catalog file.
func (s *Sealer) Status(ctx context.Context) (*StatusInfo, error) {
	db, err := s.catalog(false)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, ErrNoCatalog
	}

	info := &StatusInfo{CatalogPath: s.opts.Catalog}
	info.CatalogID, _ = db.GetCatalogID()
	if info.Created, err = db.GetCreated(); err != nil {
		return nil, err
	}
	if info.Modified, err = db.GetModified(); err != nil {
		return nil, err
	}

	entries, err := db.List()
	if err != nil {
		return nil, err
	}

	var present []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileStatus := FileStatus{Entry: entry, State: StateOK}
		data, err := s.validator.ReadFileInRoot(entry.Envelope)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			fileStatus.State = StateMissing
		case err != nil:
			return nil, &FileError{Op: "status", Path: entry.Envelope, Err: err}
		case !crypto.DigestEqual(crypto.Digest(data), entry.EnvelopeDigest):
			fileStatus.State = StateModified
		}

		if s.exists(entry.Source) {
			fileStatus.SourcePresent = true
			present = append(present, entry.Source)
		}

		info.TotalPlain += entry.PlainSize
		info.Files = append(info.Files, fileStatus)
	}

	if len(present) > 0 {
		gitStatus, err := git.Check(ctx, s.Root(), present)
		if err != nil {
			s.log.Warnf("git check failed: %v", err)
		} else {
			info.Git = gitStatus
		}
	}

	return info, nil
}
