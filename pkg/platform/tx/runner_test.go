package tx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aurum/pkg/domain-errors"
)

func TestLockRunner_Reentrant(t *testing.T) {
	r := NewLockRunner(0)
	calls := 0
	err := r.RunInTx(context.Background(), func(ctx context.Context) error {
		calls++
		return r.RunInTx(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLockRunner_Serializes(t *testing.T) {
	r := NewLockRunner(0)
	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.RunInTx(context.Background(), func(ctx context.Context) error {
				v := counter
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestLockRunner_CancelledContext(t *testing.T) {
	r := NewLockRunner(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.RunInTx(ctx, func(ctx context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestLockRunner_Rollback(t *testing.T) {
	boom := errors.New("boom")

	t.Run("failed fn reverts registered writes newest first", func(t *testing.T) {
		r := NewLockRunner(0)
		var mu sync.Mutex
		m := map[string]int{"kept": 1}
		var order []string

		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			mu.Lock()
			Restore(ctx, &mu, m, "kept")
			m["kept"] = 2
			Restore(ctx, &mu, m, "added")
			m["added"] = 3
			mu.Unlock()
			OnRollback(ctx, func() { order = append(order, "first") })
			OnRollback(ctx, func() { order = append(order, "second") })
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, map[string]int{"kept": 1}, m)
		assert.Equal(t, []string{"second", "first"}, order)
	})

	t.Run("successful fn keeps writes", func(t *testing.T) {
		r := NewLockRunner(0)
		var mu sync.Mutex
		m := map[string]int{}
		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			Restore(ctx, &mu, m, "a")
			m["a"] = 1
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, m["a"])
	})

	t.Run("failed nested call reverts only its own writes", func(t *testing.T) {
		r := NewLockRunner(0)
		var mu sync.Mutex
		m := map[string]int{}
		err := r.RunInTx(context.Background(), func(ctx context.Context) error {
			Restore(ctx, &mu, m, "outer")
			m["outer"] = 1
			nested := r.RunInTx(ctx, func(ctx context.Context) error {
				Restore(ctx, &mu, m, "inner")
				m["inner"] = 2
				return boom
			})
			assert.ErrorIs(t, nested, boom)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"outer": 1}, m)
	})

	t.Run("writes committed by another runner revert with the enclosing one", func(t *testing.T) {
		outer, inner := NewLockRunner(0), NewLockRunner(0)
		var mu sync.Mutex
		m := map[string]int{}
		err := outer.RunInTx(context.Background(), func(ctx context.Context) error {
			require.NoError(t, inner.RunInTx(ctx, func(ctx context.Context) error {
				Restore(ctx, &mu, m, "inner")
				m["inner"] = 1
				return nil
			}))
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Empty(t, m)
	})

	t.Run("no-op outside a transaction", func(t *testing.T) {
		called := false
		OnRollback(context.Background(), func() { called = true })
		assert.False(t, called)
	})
}

func TestSQLRunner(t *testing.T) {
	t.Run("commits on success and exposes tx", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(ledgerLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err = NewSQLRunner(db).RunInTx(context.Background(), func(ctx context.Context) error {
			_, ok := From(ctx)
			assert.True(t, ok)
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = NewSQLRunner(db).RunInTx(context.Background(), func(ctx context.Context) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
