package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/token/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

const (
	holder  = id.Address("0x0000000000000000000000000000000000000010")
	spender = id.Address("0x0000000000000000000000000000000000000011")
)

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresStore_Accounts(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()
	lock := time.Date(2031, 3, 31, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT balance, transfer_lock_until FROM token_accounts").
		WithArgs(holder.String()).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "transfer_lock_until"}).AddRow("3", lock))
	a, err := s.FindAccount(ctx, holder)
	require.NoError(t, err)
	assert.Equal(t, "3", a.Balance.String())
	assert.Equal(t, lock, a.TransferLockUntil)

	mock.ExpectQuery("SELECT balance, transfer_lock_until FROM token_accounts").
		WithArgs(spender.String()).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "transfer_lock_until"}).AddRow("1", nil))
	a, err = s.FindAccount(ctx, spender)
	require.NoError(t, err)
	assert.True(t, a.TransferLockUntil.IsZero())

	mock.ExpectQuery("SELECT balance, transfer_lock_until FROM token_accounts").
		WithArgs(holder.String()).
		WillReturnError(sql.ErrNoRows)
	_, err = s.FindAccount(ctx, holder)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	mock.ExpectExec("INSERT INTO token_accounts").
		WithArgs(holder.String(), "5", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveAccount(ctx, &models.Account{Holder: holder, Balance: decimal.NewFromInt(5)}))

	mock.ExpectQuery("SELECT holder, balance, transfer_lock_until FROM token_accounts").
		WillReturnRows(sqlmock.NewRows([]string{"holder", "balance", "transfer_lock_until"}).
			AddRow(holder.String(), "5", nil).
			AddRow(spender.String(), "1", lock))
	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, spender, accounts[1].Holder)

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("6"))
	total, err := s.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6", total.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Allowances(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT amount FROM token_allowances").
		WithArgs(holder.String(), spender.String()).
		WillReturnError(sql.ErrNoRows)
	amount, err := s.FindAllowance(ctx, holder, spender)
	require.NoError(t, err)
	assert.True(t, amount.IsZero())

	mock.ExpectExec("INSERT INTO token_allowances").
		WithArgs(holder.String(), spender.String(), "2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveAllowance(ctx, holder, spender, decimal.NewFromInt(2)))

	mock.ExpectExec("DELETE FROM token_allowances").
		WithArgs(holder.String(), spender.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveAllowance(ctx, holder, spender, decimal.Zero))

	require.NoError(t, mock.ExpectationsWereMet())
}
