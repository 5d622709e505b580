package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "aurum/pkg/platform/audit"
	txcontext "aurum/pkg/platform/tx"
)

func TestStore_AppendUsesContextTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db)
	event := audit.Event{
		ID:        uuid.New(),
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Action:    string(audit.EventSubscriptionCreated),
		Entity:    "subscription",
		EntityID:  "sub-1",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_outbox").
		WithArgs(event.ID, "compliance", "sub-1", string(audit.EventSubscriptionCreated), sqlmock.AnyArg(), event.Timestamp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	ctx := txcontext.WithTx(context.Background(), tx)
	require.NoError(t, store.Append(ctx, event))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListByEntityDecodesPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eventID := uuid.New()
	payload := `{"id":"` + eventID.String() + `","category":"compliance","timestamp":"2025-01-02T03:04:05Z","action":"token_minted","entity":"holder","entity_id":"0xabc","after":"balance=1"}`
	mock.ExpectQuery("SELECT payload FROM audit_outbox").
		WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(payload)))

	events, err := New(db).ListByEntity(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventID, events[0].ID)
	assert.Equal(t, "token_minted", events[0].Action)
	assert.Equal(t, "balance=1", events[0].After)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchPendingAndMark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	entryID := uuid.New()
	mock.ExpectQuery("SELECT id, category, entity_id, payload FROM audit_outbox").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "entity_id", "payload"}).
			AddRow(entryID.String(), "security", "0xabc", []byte(`{}`)))
	now := time.Now()
	mock.ExpectExec("UPDATE audit_outbox SET published_at").
		WithArgs(entryID, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := New(db)
	entries, err := store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.CategorySecurity, entries[0].Category)
	require.NoError(t, store.MarkPublished(context.Background(), entryID, now))
	require.NoError(t, mock.ExpectationsWereMet())
}
