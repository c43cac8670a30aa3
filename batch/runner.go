/*
Package batch provides the paged, chunked execution harness for scheduled jobs.

PURPOSE:
  Drives a calculator over a large dataset in fixed-size chunks. Each chunk is
  loaded through a stable-ordered page query and handed to a processing
  function that commits its writes as one atomic unit. The runner collects
  per-record outcomes into a Report instead of losing them in a single error.

KEY CONCEPTS:
  Source:    Loads one page of records. MUST return records in a stable order
             (e.g. ORDER BY id) so that chunk boundaries are deterministic and
             no record is skipped or double-processed across pages.
  ChunkFunc: Processes one chunk. Writes performed inside it must commit
             atomically (the caller typically wraps them in a store
             transaction). Returning an error aborts the run: the failing
             chunk's writes are rolled back by the caller, previously
             committed chunks stay visible.
  Result:    Outcome of a single record, identified by key. A Result with a
             non-nil Err records a skipped record without aborting the run.
  KeyedLock: Mutual exclusion per logical key (e.g. one batch run per target
             month).

CHUNK = PAGE:
  The runner uses the chunk size as the page size, so one page load feeds
  exactly one atomic commit. A short page marks the end of the dataset.

SEE ALSO:
  - finance/pipeline.go: The two-stage monthly pipeline built on this runner
*/
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultChunkSize is used when Config.ChunkSize is not set.
const DefaultChunkSize = 100

// =============================================================================
// PAGING
// =============================================================================

// Page identifies one fixed-size window of a stable-ordered query.
type Page struct {
	Number int // zero-based
	Size   int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int { return p.Number * p.Size }

// Source loads one page of records. Implementations MUST apply a stable
// ordering; offset paging over an unordered result set is a correctness bug,
// not a performance detail.
type Source[T any] func(ctx context.Context, page Page) ([]T, error)

// ChunkFunc processes one chunk and reports per-record outcomes.
// A returned error aborts the whole run (chunk-level failure).
type ChunkFunc[T any] func(ctx context.Context, chunk []T) ([]Result, error)

// =============================================================================
// RESULTS
// =============================================================================

// Result is the outcome of processing a single record.
type Result struct {
	Key string // record identity (employee ID, project ID, ...)
	Err error  // nil on success
}

// Failed reports whether the record was skipped with an error.
func (r Result) Failed() bool { return r.Err != nil }

// Report aggregates the outcome of one run over one dataset.
type Report struct {
	Chunks    int
	Processed int
	Succeeded int
	Failed    int
	Failures  []Result

	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Report) record(results []Result) {
	r.Chunks++
	for _, res := range results {
		r.Processed++
		if res.Failed() {
			r.Failed++
			r.Failures = append(r.Failures, res)
		} else {
			r.Succeeded++
		}
	}
}

// =============================================================================
// RUNNER
// =============================================================================

// Config controls chunking behavior.
type Config struct {
	// ChunkSize is the number of records loaded and committed per chunk.
	ChunkSize int
}

func (c Config) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}

// Run pages through src and processes each page as one chunk.
//
// On a chunk-level error the partially built Report is returned alongside the
// error so callers can see how far the run got. Chunks committed before the
// failure remain visible; the failing chunk is the caller's to roll back.
func Run[T any](ctx context.Context, cfg Config, src Source[T], process ChunkFunc[T]) (*Report, error) {
	size := cfg.chunkSize()
	report := &Report{StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	for pageNum := 0; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page := Page{Number: pageNum, Size: size}
		items, err := src(ctx, page)
		if err != nil {
			return report, fmt.Errorf("load page %d: %w", pageNum, err)
		}
		if len(items) == 0 {
			return report, nil
		}

		results, err := process(ctx, items)
		if err != nil {
			return report, fmt.Errorf("chunk %d: %w", pageNum, err)
		}
		report.record(results)

		// Short page means the dataset is exhausted.
		if len(items) < size {
			return report, nil
		}
	}
}

// =============================================================================
// KEYED LOCK - Mutual exclusion per logical key
// =============================================================================

// KeyedLock prevents concurrent runs for the same key (e.g. target month).
// Runs for different keys proceed independently.
type KeyedLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{held: make(map[string]struct{})}
}

// TryAcquire takes the lock for key without blocking.
// Returns false if the key is already held.
func (l *KeyedLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees the lock for key. Releasing an unheld key is a no-op.
func (l *KeyedLock) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
