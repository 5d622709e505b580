package flags

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	f, err := s.Get(ctx, Pause)
	require.NoError(t, err)
	assert.False(t, f.Active)
	assert.Equal(t, Pause, f.Name)

	require.NoError(t, s.Set(ctx, Flag{Name: Pause, Active: true, Reason: "incident"}))
	f, err = s.Get(ctx, Pause)
	require.NoError(t, err)
	assert.True(t, f.Active)
}

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgres(db)
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	pauser := "0x0000000000000000000000000000000000000005"

	mock.ExpectQuery("SELECT active, reason, updated_by, updated_at FROM ledger_flags").
		WithArgs(EmergencyHalt).
		WillReturnError(sql.ErrNoRows)
	f, err := s.Get(context.Background(), EmergencyHalt)
	require.NoError(t, err)
	assert.False(t, f.Active)

	mock.ExpectExec("INSERT INTO ledger_flags").
		WithArgs(EmergencyHalt, true, "custodian audit", pauser, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Set(context.Background(), Flag{Name: EmergencyHalt, Active: true, Reason: "custodian audit", UpdatedBy: "0x0000000000000000000000000000000000000005", UpdatedAt: at}))

	mock.ExpectQuery("SELECT active, reason, updated_by, updated_at FROM ledger_flags").
		WithArgs(EmergencyHalt).
		WillReturnRows(sqlmock.NewRows([]string{"active", "reason", "updated_by", "updated_at"}).
			AddRow(true, "custodian audit", pauser, at))
	f, err = s.Get(context.Background(), EmergencyHalt)
	require.NoError(t, err)
	assert.True(t, f.Active)
	assert.Equal(t, "custodian audit", f.Reason)

	require.NoError(t, mock.ExpectationsWereMet())
}
