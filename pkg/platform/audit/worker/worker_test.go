package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/audit/store/postgres"
)

type fakeOutbox struct {
	pending   []postgres.OutboxEntry
	published []uuid.UUID
}

func (f *fakeOutbox) FetchPending(_ context.Context, limit int) ([]postgres.OutboxEntry, error) {
	var out []postgres.OutboxEntry
	for _, e := range f.pending {
		done := false
		for _, p := range f.published {
			if p == e.ID {
				done = true
			}
		}
		if !done && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, entryID uuid.UUID, _ time.Time) error {
	f.published = append(f.published, entryID)
	return nil
}

type record struct {
	topic string
	key   string
}

type fakeProducer struct {
	records []record
	failAt  int
}

func (f *fakeProducer) Produce(_ context.Context, topic string, key, _ []byte) error {
	if f.failAt > 0 && len(f.records)+1 == f.failAt {
		return errors.New("broker unavailable")
	}
	f.records = append(f.records, record{topic: topic, key: string(key)})
	return nil
}

func TestRelay_FlushRoutesByCategory(t *testing.T) {
	outbox := &fakeOutbox{pending: []postgres.OutboxEntry{
		{ID: uuid.New(), Category: audit.CategoryCompliance, EntityID: "sub-1"},
		{ID: uuid.New(), Category: audit.CategorySecurity, EntityID: "0xabc"},
	}}
	producer := &fakeProducer{}
	relay := NewRelay(outbox, producer, "aurum.audit")

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []record{
		{topic: "aurum.audit.compliance", key: "sub-1"},
		{topic: "aurum.audit.security", key: "0xabc"},
	}, producer.records)

	n, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "published entries are not resent")
}

func TestRelay_StopsAtFirstFailure(t *testing.T) {
	outbox := &fakeOutbox{pending: []postgres.OutboxEntry{
		{ID: uuid.New(), Category: audit.CategoryOperations},
		{ID: uuid.New(), Category: audit.CategoryOperations},
		{ID: uuid.New(), Category: audit.CategoryOperations},
	}}
	producer := &fakeProducer{failAt: 2}

	n, err := NewRelay(outbox, producer, "aurum.audit").Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, outbox.published, 1)
}

func TestRelay_Topics(t *testing.T) {
	relay := NewRelay(&fakeOutbox{}, &fakeProducer{}, "p")
	assert.Equal(t, []string{"p.compliance", "p.security", "p.operations"}, relay.Topics())
}
