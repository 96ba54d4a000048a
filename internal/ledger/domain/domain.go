// Package domain holds the ledger authority's data model. Values are integer
// cents; identities are base64url ed25519 public keys.
package domain

import (
	"time"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

// Group is a registered group authority. The key is the group's signing
// identity and never changes after registration.
type Group struct {
	UUID      string
	Name      string
	Key       cryptox.Identity
	CreatedAt time.Time
}

// Membership records one confirmed member of a group and their running
// balance. A positive balance means the group owes the member, negative means
// the member owes the group. Balances only move inside an accept transaction,
// so the sum over a group is always zero.
type Membership struct {
	GroupUUID string
	Identity  cryptox.Identity
	Balance   int64
	CreatedAt time.Time
}

// UOMeState tracks where a UOMe is in its lifecycle.
type UOMeState string

const (
	// UOMeIssued means the lender has declared the debt but not yet bound it
	// to the server-assigned uuid.
	UOMeIssued UOMeState = "issued"
	// UOMeConfirmed means the lender has re-signed the terms including the
	// uuid; the UOMe now waits on the borrower.
	UOMeConfirmed UOMeState = "confirmed"
	// UOMeAccepted means the borrower has countersigned and the balances have
	// been updated. Accepted UOMes are immutable.
	UOMeAccepted UOMeState = "accepted"
)

// UOMe is a single debt declaration. Its terms are covered by the issuer
// signature and never change; the only mutations are state transitions and
// the arrival of the borrower's signature.
type UOMe struct {
	UUID              string
	GroupUUID         string
	Lender            cryptox.Identity
	Borrower          cryptox.Identity
	Value             int64
	Description       string
	IssuerSignature   []byte
	BorrowerSignature []byte
	State             UOMeState
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Settlement is one edge of the current netting plan: debtor pays creditor.
// Settlement rows are derived data, fully replaced on every recomputation.
type Settlement struct {
	GroupUUID string
	Debtor    cryptox.Identity
	Creditor  cryptox.Identity
	Value     int64
}
