package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the ledger authority. Concrete
// drivers (sqlite today) implement this. Sub-repositories keep concerns tidy
// and make it obvious which operations belong inside a transaction.
type Store interface {
	Groups() Groups
	Memberships() Memberships
	UOMes() UOMes
	Settlements() Settlements

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back if fn returns an
	// error and committing otherwise. Every balance-touching operation goes
	// through this.
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

type Groups interface {
	// CreateGroup inserts a new group (uuid assigned by the service).
	CreateGroup(ctx context.Context, g domain.Group) error

	// GetGroupByUUID returns a group by its uuid.
	GetGroupByUUID(ctx context.Context, uuid string) (domain.Group, error)

	// GetGroupByKey returns a group by its signing identity, used to reject
	// duplicate registrations of the same key.
	GetGroupByKey(ctx context.Context, key cryptox.Identity) (domain.Group, error)
}

type Memberships interface {
	// CreateMembership inserts a member with a zero balance.
	CreateMembership(ctx context.Context, m domain.Membership) error

	// GetMembership returns one member's row.
	GetMembership(ctx context.Context, groupUUID string, id cryptox.Identity) (domain.Membership, error)

	// ListBalances returns every member's balance in a group. The netting
	// recomputation reads this inside the accept transaction.
	ListBalances(ctx context.Context, groupUUID string) (map[cryptox.Identity]int64, error)

	// AdjustBalance adds delta to a member's balance.
	AdjustBalance(ctx context.Context, groupUUID string, id cryptox.Identity, delta int64) error
}

type UOMes interface {
	// CreateUOMe inserts a freshly issued UOMe.
	CreateUOMe(ctx context.Context, u domain.UOMe) error

	// GetUOMe returns a UOMe by group and uuid.
	GetUOMe(ctx context.Context, groupUUID, uuid string) (domain.UOMe, error)

	// SetState transitions a UOMe's state and bumps updated_at.
	SetState(ctx context.Context, uuid string, state domain.UOMeState) error

	// Accept atomically records the borrower's signature and moves the UOMe
	// to the accepted state. Must run inside a transaction alongside the
	// balance updates.
	Accept(ctx context.Context, uuid string, borrowerSignature []byte) error

	// DeleteUOMe removes a cancelled UOMe.
	DeleteUOMe(ctx context.Context, uuid string) error

	// ListByLender returns unaccepted UOMes where id is the lender.
	ListByLender(ctx context.Context, groupUUID string, id cryptox.Identity) ([]domain.UOMe, error)

	// ListAwaitingBorrower returns confirmed UOMes waiting on id's acceptance.
	ListAwaitingBorrower(ctx context.Context, groupUUID string, id cryptox.Identity) ([]domain.UOMe, error)
}

type Settlements interface {
	// ReplaceForGroup swaps the group's settlement rows for the given plan.
	// Runs inside the accept transaction so readers never see a half-applied
	// plan.
	ReplaceForGroup(ctx context.Context, groupUUID string, rows []domain.Settlement) error

	// ListForMember returns settlement rows where id is the debtor or the
	// creditor.
	ListForMember(ctx context.Context, groupUUID string, id cryptox.Identity) ([]domain.Settlement, error)
}
