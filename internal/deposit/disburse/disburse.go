// Package disburse hands withdrawal payouts to the settlement side. The
// ledger only publishes the instruction; settlement runs off-ledger.
package disburse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
	"aurum/pkg/requestcontext"
)

// Producer publishes one record and returns once it is acknowledged.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// Instruction is the payload settlement consumes. Consumers dedupe on ID.
type Instruction struct {
	ID          uuid.UUID `json:"id"`
	Holder      string    `json:"holder"`
	AmountUSD   string    `json:"amount_usd"`
	TargetToken string    `json:"target_token"`
	RequestedAt time.Time `json:"requested_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

// KafkaDisburser publishes an Instruction keyed by holder, so one holder's
// payouts stay ordered on a partition.
type KafkaDisburser struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaDisburser(producer Producer, topic string, logger *slog.Logger) *KafkaDisburser {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaDisburser{producer: producer, topic: topic, logger: logger}
}

func (d *KafkaDisburser) Disburse(ctx context.Context, holder id.Address, amount decimal.Decimal, targetToken string) error {
	in := Instruction{
		ID:          uuid.New(),
		Holder:      holder.String(),
		AmountUSD:   amount.String(),
		TargetToken: targetToken,
		RequestedAt: requestcontext.Now(ctx),
		RequestID:   requestcontext.RequestID(ctx),
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode disbursement: %w", err)
	}
	if err := d.producer.Produce(ctx, d.topic, []byte(in.Holder), payload); err != nil {
		return fmt.Errorf("publish disbursement: %w", err)
	}
	d.logger.InfoContext(ctx, "disbursement published",
		"disbursement_id", in.ID.String(),
		"holder", in.Holder,
		"amount_usd", in.AmountUSD,
		"target_token", targetToken,
	)
	return nil
}
