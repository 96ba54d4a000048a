package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/uome/internal/group/domain"
	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// JoinService handles secret redemption and the final confirmation of the
// join protocol. No step promotes the member on its own; confirmation only
// succeeds after the ledger has acknowledged the membership.
type JoinService struct {
	Store  store.Store
	Signer cryptox.Signer
	Ledger Ledger

	LedgerIdentity cryptox.Identity // optional; verifies ledger acknowledgements when set
}

// Join redeems an invitation secret. The invitee proves possession of their
// key by signing over the secret; the secret is single-use. The response
// hands back the inviter's original signature and the group's
// countersignature over it, which the invitee verifies before confirming.
func (s *JoinService) Join(
	ctx context.Context,
	groupUUID string,
	user cryptox.Identity,
	secretCode string,
	userSig []byte,
) (domain.Invitation, []byte, error) {
	log := slogx.FromContext(ctx)

	// 1. The request must name this group.
	if _, err := registeredUUID(ctx, s.Store, groupUUID); err != nil {
		return domain.Invitation{}, nil, err
	}

	// 2. Verify the invitee's signature over the redemption tuple.
	if err := wire.Verify(user, wire.KindJoin, wire.SigUser, userSig, wire.Values{
		"group_uuid":  groupUUID,
		"user":        user,
		"secret_code": secretCode,
	}); err != nil {
		log.Warn("join signature rejected", slog.Any("error", err))
		return domain.Invitation{}, nil, err
	}

	// 3. Find the live invitation for this identity.
	invitation, err := s.Store.Invitations().GetActiveByInvitee(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Distinguish a consumed secret from no invitation at all.
			if _, usedErr := s.Store.Invitations().GetByInvitee(ctx, user); usedErr == nil {
				return domain.Invitation{}, nil, ErrInvitationUsed
			}
			return domain.Invitation{}, nil, ErrInvitationNotFound
		}
		log.Error("failed to fetch invitation", slog.Any("error", err))
		return domain.Invitation{}, nil, err
	}

	// 4. Match the presented secret against the stored hash.
	if err := cryptox.VerifySecret(secretCode, invitation.SecretHash); err != nil {
		log.Warn("join attempted with wrong secret",
			slog.String("invitation_id", invitation.ID),
		)
		return domain.Invitation{}, nil, ErrSecretMismatch
	}

	// 5. Burn the secret.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Invitations().MarkUsed(ctx, invitation.ID)
	})
	if err != nil {
		log.Error("failed to mark invitation used", slog.Any("error", err))
		return domain.Invitation{}, nil, err
	}

	log.Info("invitation secret redeemed",
		slog.String("invitation_id", invitation.ID),
	)

	// 6. Countersign the inviter's attestation, chaining the signatures.
	groupSig, err := wire.Sign(s.Signer, wire.KindJoin, wire.SigGroup, wire.Values{
		"inviter_signature": invitation.InviterSignature,
	})
	if err != nil {
		return domain.Invitation{}, nil, err
	}

	return invitation, groupSig, nil
}

// ConfirmJoin completes the chain: the invitee signs over the group
// countersignature they verified, the group authority attests the membership
// to the ledger, and only the ledger's acknowledgement promotes the member.
func (s *JoinService) ConfirmJoin(
	ctx context.Context,
	groupUUID string,
	user cryptox.Identity,
	groupSig, userSig []byte,
) ([]byte, error) {
	log := slogx.FromContext(ctx)

	// 1. The request must name this group.
	if _, err := registeredUUID(ctx, s.Store, groupUUID); err != nil {
		return nil, err
	}

	// 2. The identity must hold a redeemed invitation.
	invitation, err := s.Store.Invitations().GetByInvitee(ctx, user)
	if err != nil || !invitation.Used {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to fetch invitation", slog.Any("error", err))
			return nil, err
		}
		return nil, ErrNotInvited
	}

	// 3. The presented countersignature must be ours, over this invitation's
	// inviter signature.
	if err := wire.Verify(s.Signer.Identity(), wire.KindJoin, wire.SigGroup, groupSig, wire.Values{
		"inviter_signature": invitation.InviterSignature,
	}); err != nil {
		log.Warn("confirm-join presented a foreign group signature")
		return nil, err
	}

	// 4. Verify the invitee signed over that countersignature.
	if err := wire.Verify(user, wire.KindConfirmJoin, wire.SigUser, userSig, wire.Values{
		"group_uuid":      groupUUID,
		"user":            user,
		"group_signature": groupSig,
	}); err != nil {
		log.Warn("confirm-join signature rejected", slog.Any("error", err))
		return nil, err
	}

	// 5. Attest the membership to the ledger.
	attestation, err := wire.Sign(s.Signer, wire.KindMainJoin, wire.SigGroup, wire.Values{
		"group_uuid": groupUUID,
		"user":       user,
	})
	if err != nil {
		return nil, err
	}
	mainSig, err := s.Ledger.MainJoin(ctx, groupUUID, user, attestation)
	if err != nil {
		log.Error("ledger membership attestation failed", slog.Any("error", err))
		return nil, err
	}

	// 6. Verify the ledger's acknowledgement before promoting anyone.
	if s.LedgerIdentity != "" {
		if err := wire.Verify(s.LedgerIdentity, wire.KindMainJoin, wire.SigMain, mainSig, wire.Values{
			"group_uuid": groupUUID,
			"user":       user,
		}); err != nil {
			log.Error("ledger acknowledgement rejected", slog.Any("error", err))
			return nil, err
		}
	}

	// 7. Promote the member.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Members().ConfirmMember(ctx, user)
	})
	if err != nil {
		log.Error("failed to confirm member", slog.Any("error", err))
		return nil, err
	}

	log.Info("member confirmed",
		slog.String("group_uuid", groupUUID),
		slog.String("user", string(user)),
	)

	return mainSig, nil
}
