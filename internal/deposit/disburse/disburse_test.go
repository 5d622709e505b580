package disburse

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/pkg/requestcontext"
	"aurum/pkg/testutil"
)

type record struct {
	topic string
	key   string
	value []byte
}

type fakeProducer struct {
	records []record
	err     error
}

func (f *fakeProducer) Produce(_ context.Context, topic string, key, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record{topic: topic, key: string(key), value: value})
	return nil
}

func TestKafkaDisburser(t *testing.T) {
	holder := testutil.Address(0x10)
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithRequestID(testutil.Ctx(holder, at), "req-1")

	t.Run("publishes instruction keyed by holder", func(t *testing.T) {
		p := &fakeProducer{}
		d := NewKafkaDisburser(p, "aurum.disbursements", slog.New(slog.DiscardHandler))

		require.NoError(t, d.Disburse(ctx, holder, decimal.RequireFromString("5000e18"), "USDC"))
		require.Len(t, p.records, 1)
		assert.Equal(t, "aurum.disbursements", p.records[0].topic)
		assert.Equal(t, holder.String(), p.records[0].key)

		var in Instruction
		require.NoError(t, json.Unmarshal(p.records[0].value, &in))
		assert.Equal(t, "5000000000000000000000", in.AmountUSD)
		assert.Equal(t, "USDC", in.TargetToken)
		assert.Equal(t, "req-1", in.RequestID)
		assert.True(t, at.Equal(in.RequestedAt))
	})

	t.Run("broker failure is returned", func(t *testing.T) {
		d := NewKafkaDisburser(&fakeProducer{err: errors.New("broker unavailable")}, "aurum.disbursements", nil)
		err := d.Disburse(ctx, holder, decimal.NewFromInt(1), "USDC")
		assert.ErrorContains(t, err, "broker unavailable")
	})
}
