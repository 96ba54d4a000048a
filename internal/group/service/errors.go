package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

var (
	ErrWrongGroup           = errors.New("request names a different group")
	ErrNotRegistered        = errors.New("group is not registered with the ledger")
	ErrInviterNotMember     = errors.New("inviter is not a confirmed member")
	ErrInviteeAlreadyMember = errors.New("invitee is already a member")
	ErrInvitationNotFound   = errors.New("no live invitation for this identity")
	ErrInvitationUsed       = errors.New("invitation secret has already been redeemed")
	ErrSecretMismatch       = errors.New("secret code does not match the invitation")
	ErrNotInvited           = errors.New("identity has no redeemed invitation to confirm")
)

// Ledger is the slice of the ledger authority the group authority needs:
// registering itself and forwarding membership attestations.
type Ledger interface {
	RegisterGroup(ctx context.Context, name string, key cryptox.Identity, groupSig []byte) (string, []byte, error)
	MainJoin(ctx context.Context, groupUUID string, user cryptox.Identity, groupSig []byte) ([]byte, error)
}

// registeredUUID loads the ledger-assigned group uuid and checks the request
// names this instance's group.
func registeredUUID(ctx context.Context, st store.Store, requested string) (string, error) {
	uuid, err := st.Meta().Get(ctx, store.MetaGroupUUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotRegistered
		}
		return "", err
	}
	if requested != uuid {
		return "", ErrWrongGroup
	}
	return uuid, nil
}
