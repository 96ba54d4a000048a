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

	"github.com/google/uuid"
)

// RegistryService handles group registration. A group authority registers
// itself once, proving possession of its signing key; the key is pinned and
// every later group signature is verified against it.
type RegistryService struct {
	Store  store.Store
	Signer cryptox.Signer
}

// RegisterGroup validates a self-signed registration, assigns the group its
// uuid and returns it together with the ledger's countersignature binding the
// uuid to the registered name and key.
func (s *RegistryService) RegisterGroup(
	ctx context.Context,
	name string,
	key cryptox.Identity,
	groupSig []byte,
) (string, []byte, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate the key decodes to a real public key.
	if _, err := key.PublicKey(); err != nil {
		log.Warn("group registration with malformed key")
		return "", nil, ErrInvalidGroupKey
	}

	// 2. Verify the self-signature over the registration terms.
	values := wire.Values{"group_name": name, "group_key": string(key)}
	if err := wire.Verify(key, wire.KindRegisterGroup, wire.SigGroup, groupSig, values); err != nil {
		log.Warn("group registration signature rejected", slog.Any("error", err))
		return "", nil, err
	}

	// 3. Reject a key that is already registered.
	_, err := s.Store.Groups().GetGroupByKey(ctx, key)
	if err == nil {
		log.Warn("group key already registered")
		return "", nil, ErrGroupExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check group key", slog.Any("error", err))
		return "", nil, err
	}

	// 4. Assign the uuid and store the group.
	group := domain.Group{
		UUID: uuid.NewString(),
		Name: name,
		Key:  key,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Groups().CreateGroup(ctx, group)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", nil, ErrGroupExists
		}
		log.Error("failed to create group", slog.Any("error", err))
		return "", nil, err
	}

	// 5. Countersign the uuid together with the registered terms.
	values["group_uuid"] = group.UUID
	mainSig, err := wire.Sign(s.Signer, wire.KindRegisterGroup, wire.SigMain, values)
	if err != nil {
		return "", nil, err
	}

	log.Info("group registered",
		slog.String("group_uuid", group.UUID),
		slog.String("group_name", name),
	)

	return group.UUID, mainSig, nil
}
