package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	dErrors "aurum/pkg/domain-errors"
)

// Runner provides the transactional boundary for ledger mutations. Every
// state-changing operation runs its checks and effects inside one RunInTx call
// so either all effects apply or none do.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout is the maximum duration for a ledger transaction.
const defaultTxTimeout = 5 * time.Second

type heldKey struct{}

// held marks a context as running inside a LockRunner transaction.
type held struct {
	runner  *LockRunner
	journal *journal
}

// journal collects compensations registered by in-memory stores. Undos run
// newest first.
type journal struct {
	mu    sync.Mutex
	undos []func()
}

func (j *journal) add(undo ...func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undos = append(j.undos, undo...)
}

func (j *journal) mark() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undos)
}

// rollback runs every undo registered after mark and forgets them.
func (j *journal) rollback(mark int) {
	j.mu.Lock()
	undos := j.undos[mark:]
	j.undos = j.undos[:mark]
	j.mu.Unlock()
	for i := len(undos) - 1; i >= 0; i-- {
		undos[i]()
	}
}

func (j *journal) drain() []func() {
	j.mu.Lock()
	defer j.mu.Unlock()
	undos := j.undos
	j.undos = nil
	return undos
}

// LockRunner serializes ledger mutations behind a single process-wide lock.
// Nested RunInTx calls on the same runner reuse the held lock, which lets a
// subscription maturation call into the token ledger within one unit.
//
// Stores without their own transactions register compensations through
// OnRollback. A failing fn reverts every write made inside it; a failing
// nested call reverts only its own writes.
type LockRunner struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewLockRunner creates an in-memory runner. A zero timeout uses the default.
func NewLockRunner(timeout time.Duration) *LockRunner {
	return &LockRunner{timeout: timeout}
}

func (r *LockRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	parent, _ := ctx.Value(heldKey{}).(*held)
	if parent != nil && parent.runner == r {
		mark := parent.journal.mark()
		if err := fn(ctx); err != nil {
			parent.journal.rollback(mark)
			return err
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	j := &journal{}
	committed := false
	defer func() {
		if !committed {
			j.rollback(0)
		}
	}()
	if err := fn(context.WithValue(ctx, heldKey{}, &held{runner: r, journal: j})); err != nil {
		return err
	}
	committed = true
	// Inside another runner's transaction the writes stay revertible by it.
	if parent != nil {
		parent.journal.add(j.drain()...)
	}
	return nil
}

// OnRollback registers undo with the enclosing LockRunner transaction. It is
// a no-op outside one: SQL stores roll back with their transaction.
func OnRollback(ctx context.Context, undo func()) {
	if h, ok := ctx.Value(heldKey{}).(*held); ok {
		h.journal.add(undo)
	}
}

// Restore registers an undo that puts m[k] back to its current value, or
// deletes it when absent. Call it with mu held, before writing m[k]. Pointer
// values must be copied by the caller instead.
func Restore[K comparable, V any](ctx context.Context, mu sync.Locker, m map[K]V, k K) {
	prev, existed := m[k]
	OnRollback(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// ledgerLockKey is the advisory lock id that gives PostgreSQL deployments the
// same single-writer semantics as LockRunner.
const ledgerLockKey int64 = 0x6175_7275_6d00

// SQLRunner runs fn inside one database transaction stored in the context.
// Stores pick it up through From so every write in fn commits or rolls back
// together.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}
	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

type txKey struct{}

// WithTx carries the ledger transaction to the stores called inside RunInTx.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// From returns the ledger transaction, if ctx is inside SQLRunner.RunInTx.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}
