// Package domain holds the group authority's data model. A groupd instance
// serves exactly one group; its signing key is the group's identity.
package domain

import (
	"time"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

// Member is one user of the group. A member starts unconfirmed when invited
// and becomes confirmed only after the full join chain completes, ledger
// acknowledgement included.
type Member struct {
	Identity  cryptox.Identity
	Email     string
	Confirmed bool
	CreatedAt time.Time
}

// Invitation tracks one outstanding invite. The secret code is stored only as
// an argon2id hash; the raw code travels by email and is redeemed once. The
// inviter's signature is kept so the invitee can verify the chain at join
// time.
type Invitation struct {
	ID               string // ULID
	Inviter          cryptox.Identity
	Invitee          cryptox.Identity
	InviteeEmail     string
	SecretHash       string
	InviterSignature []byte
	Used             bool
	CreatedAt        time.Time
}
