package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/uome/internal/group/domain"
	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/idx"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// InviteService handles the first step of the join protocol: a confirmed
// member vouches for a newcomer, and the group authority countersigns and
// emails a single-use secret code.
type InviteService struct {
	Store  store.Store
	Signer cryptox.Signer
	Mailer Mailer
}

// Invite validates an inviter's signed invitation, creates the invitation
// record with a fresh secret, sends the secret by email and returns the
// group's countersignature over the invite tuple.
func (s *InviteService) Invite(
	ctx context.Context,
	groupUUID string,
	inviter, invitee cryptox.Identity,
	inviteeEmail string,
	inviterSig []byte,
) ([]byte, error) {
	log := slogx.FromContext(ctx)

	// 1. The request must name this group.
	if _, err := registeredUUID(ctx, s.Store, groupUUID); err != nil {
		return nil, err
	}

	// 2. Only confirmed members may invite.
	member, err := s.Store.Members().GetMember(ctx, inviter)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInviterNotMember
		}
		log.Error("failed to fetch inviter", slog.Any("error", err))
		return nil, err
	}
	if !member.Confirmed {
		return nil, ErrInviterNotMember
	}

	// 3. The invitee must not already be a confirmed member. An unconfirmed
	// one may be re-invited; the newer invitation supersedes.
	existing, err := s.Store.Members().GetMember(ctx, invitee)
	if err == nil && existing.Confirmed {
		return nil, ErrInviteeAlreadyMember
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to fetch invitee", slog.Any("error", err))
		return nil, err
	}

	// 4. Verify the inviter's signature over the invite tuple.
	values := wire.Values{
		"group_uuid":    groupUUID,
		"inviter":       inviter,
		"invitee":       invitee,
		"invitee_email": inviteeEmail,
	}
	if err := wire.Verify(inviter, wire.KindInvite, wire.SigInviter, inviterSig, values); err != nil {
		log.Warn("invite signature rejected", slog.Any("error", err))
		return nil, err
	}

	// 5. Generate the secret code and hash it for storage.
	secretCode, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		log.Error("failed to generate secret code", slog.Any("error", err))
		return nil, err
	}
	secretHash, err := cryptox.HashSecret(secretCode)
	if err != nil {
		log.Error("failed to hash secret code", slog.Any("error", err))
		return nil, err
	}

	// 6. Store the unconfirmed member and the invitation atomically.
	invitation := domain.Invitation{
		ID:               idx.New().String(),
		Inviter:          inviter,
		Invitee:          invitee,
		InviteeEmail:     inviteeEmail,
		SecretHash:       secretHash,
		InviterSignature: inviterSig,
		Used:             false,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.Members().CreateMember(ctx, domain.Member{
			Identity:  invitee,
			Email:     inviteeEmail,
			Confirmed: false,
		})
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
		return tx.Invitations().CreateInvitation(ctx, invitation)
	})
	if err != nil {
		log.Error("failed to store invitation", slog.Any("error", err))
		return nil, err
	}

	// 7. Email the secret. The invitation stands even if delivery fails; the
	// inviter can pass the code along out of band.
	if err := s.Mailer.SendInvitation(ctx, inviteeEmail, inviter, secretCode); err != nil {
		log.Warn("invitation email delivery failed", slog.Any("error", err))
	}

	log.Info("invitation created",
		slog.String("invitation_id", invitation.ID),
		slog.String("inviter", string(inviter)),
	)

	// 8. Countersign the invite tuple.
	return wire.Sign(s.Signer, wire.KindInvite, wire.SigGroup, values)
}
