package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult holds per-file outcomes in input order. Exactly one of
// Results[i] and Errors[i] is non-nil.
type BatchResult struct {
	Paths   []string
	Results []*Result
	Errors  []error
}

// Failed returns the number of files that failed
func (b *BatchResult) Failed() int {
	n := 0
	for _, err := range b.Errors {
		if err != nil {
			n++
		}
	}
	return n
}

type fileOp func(ctx context.Context, path string, passphrase []byte) (*Result, error)

// runBatch applies op to every path with at most workers in flight. A
// failing file does not stop the others; a cancelled context stops files
// that have not started yet.
func runBatch(ctx context.Context, paths []string, passphrase []byte, workers int, op fileOp) *BatchResult {
	if workers < 1 {
		workers = 1
	}

	batch := &BatchResult{
		Paths:   paths,
		Results: make([]*Result, len(paths)),
		Errors:  make([]error, len(paths)),
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			batch.Results[i], batch.Errors[i] = op(ctx, path, passphrase)
			return nil
		})
	}
	_ = g.Wait()

	return batch
}

// EncryptFiles encrypts each path independently using up to workers goroutines
func (s *Sealer) EncryptFiles(ctx context.Context, paths []string, passphrase []byte, workers int) *BatchResult {
	return runBatch(ctx, paths, passphrase, workers, s.EncryptFile)
}

// DecryptFiles decrypts each path independently using up to workers goroutines
func (s *Sealer) DecryptFiles(ctx context.Context, paths []string, passphrase []byte, workers int) *BatchResult {
	return runBatch(ctx, paths, passphrase, workers, s.DecryptFile)
}
