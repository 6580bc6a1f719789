// Package domain provides type-safe identifiers to prevent mixing up values
// at compile time.
package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	dErrors "partnerd/pkg/domain-errors"
)

// Address identifies a participant account. It is stored lowercased; Checksum
// renders the mixed-case form for display. The zero value is the unset
// address and never belongs to a participant.
type Address string

// ZeroAddress is the sentinel unset address.
const ZeroAddress Address = ""

// ParseAddress validates and normalizes a 0x-prefixed 20-byte hex address.
// Mixed-case input is verified against its checksum; all-lower and all-upper
// forms are accepted as checksum-agnostic.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address must start with 0x")
	}
	body := s[2:]
	if len(body) != 40 {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address must be 20 bytes of hex")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address contains non-hex characters")
	}
	addr := Address("0x" + strings.ToLower(body))
	if hasMixedCase(body) && addr.Checksum() != "0x"+body {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address checksum mismatch")
	}
	return addr, nil
}

func hasMixedCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'F':
			upper = true
		case r >= 'a' && r <= 'f':
			lower = true
		}
	}
	return upper && lower
}

// Checksum returns the EIP-55 mixed-case rendering of the address.
func (a Address) Checksum() string {
	body := strings.TrimPrefix(string(a), "0x")
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(body))
	digest := hash.Sum(nil)

	out := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= 'a' && c <= 'f' {
			nibble := digest[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}

func (a Address) String() string { return string(a) }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == ZeroAddress }

// PartnershipID is a monotonically assigned, never reused partnership number.
// IDs start at 0 to match the on-ledger numbering.
type PartnershipID uint64

// ParsePartnershipID parses a decimal partnership id from a trust boundary.
func ParsePartnershipID(s string) (PartnershipID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "partnership ID cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid partnership ID format")
	}
	return PartnershipID(n), nil
}

func (id PartnershipID) String() string { return strconv.FormatUint(uint64(id), 10) }

// TxRef is the opaque reference that permanently addresses one emitted event.
type TxRef uuid.UUID

// NewTxRef allocates a fresh transaction reference.
func NewTxRef() TxRef { return TxRef(uuid.New()) }

// ParseTxRef parses a transaction reference at a trust boundary.
func ParseTxRef(s string) (TxRef, error) {
	if s == "" {
		return TxRef(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "tx reference cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return TxRef(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "invalid tx reference format")
	}
	return TxRef(id), nil
}

func (r TxRef) String() string { return uuid.UUID(r).String() }

// IsNil reports whether the reference is unset.
func (r TxRef) IsNil() bool { return uuid.UUID(r) == uuid.Nil }
