package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/uome/internal/group/domain"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the group authority.
type Store interface {
	Members() Members
	Invitations() Invitations
	Meta() Meta

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back on error and
	// committing otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Members interface {
	// CreateMember inserts a member, unconfirmed at invite time.
	CreateMember(ctx context.Context, m domain.Member) error

	// GetMember returns one member by identity.
	GetMember(ctx context.Context, id cryptox.Identity) (domain.Member, error)

	// ConfirmMember marks a member confirmed after the ledger acknowledges
	// the membership.
	ConfirmMember(ctx context.Context, id cryptox.Identity) error

	// DeleteMember removes an unconfirmed member whose join chain failed.
	DeleteMember(ctx context.Context, id cryptox.Identity) error
}

type Invitations interface {
	// CreateInvitation writes a new invitation (secret_hash is argon2id of
	// the emailed code).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetActiveByInvitee returns the unused invitation for an identity.
	GetActiveByInvitee(ctx context.Context, invitee cryptox.Identity) (domain.Invitation, error)

	// GetByInvitee returns the newest invitation for an identity, used or not.
	GetByInvitee(ctx context.Context, invitee cryptox.Identity) (domain.Invitation, error)

	// MarkUsed flips used=1 when the secret is redeemed.
	MarkUsed(ctx context.Context, id string) error
}

// Meta is a small key/value table for instance state that is not tabular,
// like the group uuid assigned by the ledger at registration.
type Meta interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// MetaGroupUUID is the meta key holding the ledger-assigned group uuid.
const MetaGroupUUID = "group_uuid"
