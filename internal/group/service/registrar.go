package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/uome/internal/group/domain"
	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// RegistrarService registers this group with the ledger authority and seeds
// the founding member. Both happen once; restarts find the stored uuid and
// do nothing.
type RegistrarService struct {
	Store  store.Store
	Signer cryptox.Signer
	Ledger Ledger
	Logger *slog.Logger

	GroupName      string
	LedgerIdentity cryptox.Identity // optional; verifies ledger acknowledgements when set

	FounderIdentity cryptox.Identity // the first confirmed member
	FounderEmail    string
}

// EnsureRegistered registers the group with the ledger if it has not been
// registered yet and returns the group uuid. The founder, when configured and
// not yet a member, is admitted directly: there is nobody inside the group to
// invite them.
func (s *RegistrarService) EnsureRegistered(ctx context.Context) (string, error) {
	// 1. A stored uuid means registration already happened.
	groupUUID, err := s.Store.Meta().Get(ctx, store.MetaGroupUUID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if groupUUID == "" {
		groupUUID, err = s.register(ctx)
		if err != nil {
			return "", err
		}
	}

	// 2. Seed the founder.
	if s.FounderIdentity != "" {
		if err := s.seedFounder(ctx, groupUUID); err != nil {
			return "", err
		}
	}

	return groupUUID, nil
}

func (s *RegistrarService) register(ctx context.Context) (string, error) {
	key := s.Signer.Identity()

	// Self-sign the registration terms.
	values := wire.Values{"group_name": s.GroupName, "group_key": string(key)}
	groupSig, err := wire.Sign(s.Signer, wire.KindRegisterGroup, wire.SigGroup, values)
	if err != nil {
		return "", err
	}

	groupUUID, mainSig, err := s.Ledger.RegisterGroup(ctx, s.GroupName, key, groupSig)
	if err != nil {
		return "", fmt.Errorf("ledger registration failed: %w", err)
	}

	// Verify the ledger bound our name and key to the uuid it assigned.
	if s.LedgerIdentity != "" {
		values["group_uuid"] = groupUUID
		if err := wire.Verify(s.LedgerIdentity, wire.KindRegisterGroup, wire.SigMain, mainSig, values); err != nil {
			return "", fmt.Errorf("ledger registration acknowledgement rejected: %w", err)
		}
	}

	if err := s.Store.Meta().Set(ctx, store.MetaGroupUUID, groupUUID); err != nil {
		return "", err
	}

	s.Logger.Info("group registered with ledger",
		slog.String("group_uuid", groupUUID),
		slog.String("group_name", s.GroupName),
	)
	return groupUUID, nil
}

func (s *RegistrarService) seedFounder(ctx context.Context, groupUUID string) error {
	member, err := s.Store.Members().GetMember(ctx, s.FounderIdentity)
	if err == nil && member.Confirmed {
		return nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// Attest the founder's membership to the ledger like any other join.
	groupSig, err := wire.Sign(s.Signer, wire.KindMainJoin, wire.SigGroup, wire.Values{
		"group_uuid": groupUUID,
		"user":       s.FounderIdentity,
	})
	if err != nil {
		return err
	}
	if _, err := s.Ledger.MainJoin(ctx, groupUUID, s.FounderIdentity, groupSig); err != nil {
		return fmt.Errorf("founder ledger membership failed: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if errors.Is(err, store.ErrNotFound) || member.Identity == "" {
			if err := tx.Members().CreateMember(ctx, domain.Member{
				Identity:  s.FounderIdentity,
				Email:     s.FounderEmail,
				Confirmed: true,
			}); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
				return err
			}
		}
		return tx.Members().ConfirmMember(ctx, s.FounderIdentity)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("founding member seeded",
		slog.String("identity", string(s.FounderIdentity)),
	)
	return nil
}
