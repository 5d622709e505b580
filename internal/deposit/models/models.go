// Package models holds deposit credits, bridge proofs and the operator and
// token configuration that decides which proofs are accepted.
package models

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
)

// ErrStalePrice is returned by price converters whose quote is too old or
// who cannot currently quote at all.
var ErrStalePrice = errors.New("price quote is stale")

// Proof is an operator-attested deposit on a source chain.
type Proof struct {
	Holder            id.Address      `json:"holder"`
	SourceChain       string          `json:"source_chain"`
	SourceTxHash      string          `json:"source_tx_hash"`
	SourceToken       string          `json:"source_token"`
	SourceAmount      decimal.Decimal `json:"source_amount"`
	USDAmount         decimal.Decimal `json:"usd_amount"`
	Nonce             uint64          `json:"nonce"`
	Timestamp         time.Time       `json:"timestamp"`
	OperatorSignature string          `json:"operator_signature"`
}

// Credit is a holder's spendable USD balance. Provenance sums the gross USD
// deposited per source chain.
type Credit struct {
	Holder     id.Address
	AmountUSD  decimal.Decimal
	Provenance map[string]decimal.Decimal
	UpdatedAt  time.Time
}

// EmptyCredit is the credit of a holder that never deposited.
func EmptyCredit(holder id.Address) *Credit {
	return &Credit{Holder: holder, AmountUSD: decimal.Zero, Provenance: map[string]decimal.Decimal{}}
}

// ProcessedProof is the permanent replay marker of a credited proof.
type ProcessedProof struct {
	Hash        id.Hash
	Holder      id.Address
	CreditedUSD decimal.Decimal
	ProcessedAt time.Time
}

// Operator is a trusted bridge operator and its signing key.
type Operator struct {
	Address   id.Address
	PublicKey ed25519.PublicKey
}

// TokenConfig bounds the source amount of one token on one chain. A zero Max
// is unbounded.
type TokenConfig struct {
	Chain  string
	Token  string
	Min    decimal.Decimal
	Max    decimal.Decimal
	Stable bool
}

// TokenKey normalizes chain and token symbols for lookups.
func TokenKey(chain, token string) (string, string) {
	return strings.ToLower(strings.TrimSpace(chain)), strings.ToUpper(strings.TrimSpace(token))
}

// Receipt describes a credited proof.
type Receipt struct {
	ProofHash   id.Hash
	Holder      id.Address
	Signer      id.Address
	GrossUSD    decimal.Decimal
	FeeUSD      decimal.Decimal
	CreditedUSD decimal.Decimal
	Balance     decimal.Decimal
}
