// Package models holds agreement records: content hashes of signed
// subscription documents anchored in the ledger.
package models

import (
	"time"

	id "aurum/pkg/domain"
)

// MaxLocatorLength bounds the off-ledger document locator.
const MaxLocatorLength = 512

// Record anchors one document. A document hash is recorded at most once,
// even after revocation.
type Record struct {
	DocumentHash  id.Hash
	Locator       string
	DocType       string
	RecordedAt    time.Time
	Signer        id.Address
	Notary        id.Address
	Revoked       bool
	RevokedReason string
}

// Matches reports whether the record is live and points at locator.
func (r *Record) Matches(locator string) bool {
	return !r.Revoked && r.Locator == locator
}
