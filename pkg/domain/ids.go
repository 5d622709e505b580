package domain

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "aurum/pkg/domain-errors"
)

// Address identifies a participant, reporter, operator or system principal.
// Invariant: 0x followed by 40 hex characters, stored lower-cased.
//
// Usage: construct via ParseAddress at trust boundaries; direct casting
// bypasses validation and is reserved for tests and fixed principals.
type Address string

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ParseAddress validates and normalizes an address.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !addressPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid address format")
	}
	return Address(strings.ToLower(s)), nil
}

func (a Address) String() string { return string(a) }

func (a Address) IsZero() bool { return a == "" }

// SubscriptionID identifies a subscription record.
type SubscriptionID uuid.UUID

// NewSubscriptionID generates a random subscription id.
func NewSubscriptionID() SubscriptionID { return SubscriptionID(uuid.New()) }

// ParseSubscriptionID parses a non-nil UUID.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SubscriptionID{}, err
	}
	return SubscriptionID(u), nil
}

func (id SubscriptionID) String() string { return uuid.UUID(id).String() }

func (id SubscriptionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid id format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be nil")
	}
	return u, nil
}

// Hash is a 32-byte content or proof hash rendered as 0x-prefixed hex.
type Hash [32]byte

// ParseHash accepts 64 hex characters with or without a 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 64 {
		return h, dErrors.New(dErrors.CodeInvalidInput, "hash must be 32 bytes of hex")
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return h, dErrors.New(dErrors.CodeInvalidInput, "hash is not valid hex")
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBytes copies a 32-byte digest into a Hash.
func HashFromBytes(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalText renders the hash as 0x-hex in JSON and YAML.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Scan reads a hash stored as 0x-hex text.
func (h *Hash) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Hash", src)
	}
}

// SourceID names a reserve attestation source (custodian, auditor, oracle network).
type SourceID string

var sourcePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,63}$`)

// ParseSourceID validates a lower-case slug of at most 64 characters.
func ParseSourceID(s string) (SourceID, error) {
	if !sourcePattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid source id")
	}
	return SourceID(s), nil
}

func (s SourceID) String() string { return string(s) }

// EpochNumber is a yield epoch counter starting at 1.
type EpochNumber uint64

// ParseEpochNumber parses a positive decimal epoch number.
func ParseEpochNumber(s string) (EpochNumber, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "epoch must be a positive integer")
	}
	return EpochNumber(n), nil
}

func (n EpochNumber) String() string { return strconv.FormatUint(uint64(n), 10) }

// Jurisdiction is an ISO-3166 alpha-2 country code in upper case.
type Jurisdiction string

var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ParseJurisdiction upper-cases and validates an ISO code.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !jurisdictionPattern.MatchString(code) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "jurisdiction must be an ISO-3166 alpha-2 code")
	}
	return Jurisdiction(code), nil
}

func (j Jurisdiction) String() string { return string(j) }
