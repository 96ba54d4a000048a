package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/internal/ledger/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// MembershipService creates ledger-side memberships when a group authority
// vouches for a newly confirmed member.
type MembershipService struct {
	Store  store.Store
	Signer cryptox.Signer
}

// Join records a member the group authority has admitted. The group's
// signature over {group_uuid, user} is verified against the key pinned at
// registration; nothing the member sent is trusted directly. Join is
// idempotent so the group authority can safely retry a confirm forward.
func (s *MembershipService) Join(
	ctx context.Context,
	groupUUID string,
	user cryptox.Identity,
	groupSig []byte,
) ([]byte, error) {
	log := slogx.FromContext(ctx)

	// 1. Load the group to get its pinned key.
	group, err := s.Store.Groups().GetGroupByUUID(ctx, groupUUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		log.Error("failed to fetch group", slog.Any("error", err))
		return nil, err
	}

	// 2. Verify the group authority's signature.
	values := wire.Values{"group_uuid": groupUUID, "user": user}
	if err := wire.Verify(group.Key, wire.KindMainJoin, wire.SigGroup, groupSig, values); err != nil {
		log.Warn("main-join group signature rejected",
			slog.String("group_uuid", groupUUID),
			slog.Any("error", err),
		)
		return nil, err
	}

	// 3. Create the membership with a zero balance, skipping if it already
	// exists (retry of a lost response).
	_, err = s.Store.Memberships().GetMembership(ctx, groupUUID, user)
	switch {
	case err == nil:
		// already a member; re-issue the acknowledgement below
	case errors.Is(err, store.ErrNotFound):
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			return tx.Memberships().CreateMembership(ctx, domain.Membership{
				GroupUUID: groupUUID,
				Identity:  user,
				Balance:   0,
			})
		})
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			log.Error("failed to create membership", slog.Any("error", err))
			return nil, err
		}
		log.Info("membership created",
			slog.String("group_uuid", groupUUID),
			slog.String("user", string(user)),
		)
	default:
		log.Error("failed to check membership", slog.Any("error", err))
		return nil, err
	}

	// 4. Acknowledge with the ledger's signature over the same tuple.
	return wire.Sign(s.Signer, wire.KindMainJoin, wire.SigMain, values)
}

// requireMember loads a membership row, translating absence into the
// service's permission error. Shared by every member-gated operation.
func requireMember(ctx context.Context, st store.Store, groupUUID string, id cryptox.Identity) (domain.Membership, error) {
	m, err := st.Memberships().GetMembership(ctx, groupUUID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrNotAMember
		}
		return domain.Membership{}, err
	}
	return m, nil
}
