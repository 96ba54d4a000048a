package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/internal/ledger/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/netting"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/wire"

	"github.com/google/uuid"
)

// MaxDescriptionLen caps UOMe descriptions. Over-long descriptions are
// rejected rather than truncated: the issuer signature covers the text, so a
// truncated copy could never verify again.
const MaxDescriptionLen = 255

// UOMeService drives the UOMe lifecycle: issue, confirm, accept, cancel.
// The terms of a UOMe are frozen by the issuer signature at issue time; every
// later step re-verifies rather than re-states them.
type UOMeService struct {
	Store  store.Store
	Signer cryptox.Signer
}

// Issue validates a lender's debt declaration, assigns it a uuid and stores
// it in the issued state. The response signature binds the server-chosen uuid
// to the declared terms.
func (s *UOMeService) Issue(
	ctx context.Context,
	groupUUID string,
	lender, borrower cryptox.Identity,
	value int64,
	description string,
	userSig []byte,
) (string, []byte, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate the terms.
	if value <= 0 {
		return "", nil, ErrInvalidValue
	}
	if lender == borrower {
		return "", nil, ErrSelfLoan
	}
	if len(description) > MaxDescriptionLen {
		return "", nil, ErrDescriptionTooLong
	}

	// 2. Both parties must be members of the group.
	if _, err := s.Store.Groups().GetGroupByUUID(ctx, groupUUID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrGroupNotFound
		}
		return "", nil, err
	}
	if _, err := requireMember(ctx, s.Store, groupUUID, lender); err != nil {
		return "", nil, err
	}
	if _, err := s.Store.Memberships().GetMembership(ctx, groupUUID, borrower); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrCounterpartyUnknown
		}
		return "", nil, err
	}

	// 3. Verify the lender's signature over the terms.
	values := wire.Values{
		"group_uuid":  groupUUID,
		"lender":      lender,
		"borrower":    borrower,
		"value":       value,
		"description": description,
	}
	if err := wire.Verify(lender, wire.KindIssue, wire.SigUser, userSig, values); err != nil {
		log.Warn("issue signature rejected", slog.Any("error", err))
		return "", nil, err
	}

	// 4. Store the issued UOMe with its fresh uuid.
	u := domain.UOMe{
		UUID:            uuid.NewString(),
		GroupUUID:       groupUUID,
		Lender:          lender,
		Borrower:        borrower,
		Value:           value,
		Description:     description,
		IssuerSignature: userSig,
		State:           domain.UOMeIssued,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.UOMes().CreateUOMe(ctx, u)
	})
	if err != nil {
		log.Error("failed to create uome", slog.Any("error", err))
		return "", nil, err
	}

	// 5. Bind the uuid to the terms with the ledger's signature.
	values["uome_uuid"] = u.UUID
	mainSig, err := wire.Sign(s.Signer, wire.KindIssue, wire.SigMain, values)
	if err != nil {
		return "", nil, err
	}

	log.Info("uome issued",
		slog.String("group_uuid", groupUUID),
		slog.String("uome_uuid", u.UUID),
		slog.Int64("value", value),
	)

	return u.UUID, mainSig, nil
}

// Confirm moves an issued UOMe to the confirmed state once the lender has
// re-signed the terms including the uuid. Confirming an already-confirmed or
// accepted UOMe succeeds without effect.
func (s *UOMeService) Confirm(
	ctx context.Context,
	groupUUID string,
	lender cryptox.Identity,
	uomeUUID string,
	userSig []byte,
) ([]byte, error) {
	log := slogx.FromContext(ctx)

	// 1. Load the UOMe.
	u, err := s.Store.UOMes().GetUOMe(ctx, groupUUID, uomeUUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUOMeNotFound
		}
		return nil, err
	}

	// 2. Only the lender may confirm.
	if u.Lender != lender {
		log.Warn("confirm attempted by non-lender",
			slog.String("uome_uuid", uomeUUID),
		)
		return nil, ErrNotYourUOMe
	}

	// 3. Verify the lender's signature over the stored terms plus the uuid.
	values := wire.Values{
		"uome_uuid":   u.UUID,
		"group_uuid":  u.GroupUUID,
		"lender":      u.Lender,
		"borrower":    u.Borrower,
		"value":       u.Value,
		"description": u.Description,
	}
	if err := wire.Verify(lender, wire.KindConfirm, wire.SigUser, userSig, values); err != nil {
		log.Warn("confirm signature rejected", slog.Any("error", err))
		return nil, err
	}

	// 4. Transition issued -> confirmed; later states are left alone.
	if u.State == domain.UOMeIssued {
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			return tx.UOMes().SetState(ctx, u.UUID, domain.UOMeConfirmed)
		})
		if err != nil {
			log.Error("failed to confirm uome", slog.Any("error", err))
			return nil, err
		}
		log.Info("uome confirmed", slog.String("uome_uuid", u.UUID))
	}

	// 5. Acknowledge.
	return s.ack(groupUUID, uomeUUID, wire.KindConfirm)
}

// Accept applies a borrower's countersignature. Inside one transaction the
// UOMe moves to accepted, the two balances shift by the value and the group's
// settlement plan is recomputed from scratch. Accepting twice is a no-op.
func (s *UOMeService) Accept(
	ctx context.Context,
	groupUUID string,
	borrower cryptox.Identity,
	uomeUUID string,
	userSig []byte,
) ([]byte, error) {
	log := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Load the UOMe inside the transaction so a concurrent accept of
		// the same uuid serializes on the row.
		u, err := tx.UOMes().GetUOMe(ctx, groupUUID, uomeUUID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUOMeNotFound
			}
			return err
		}

		// 2. Only the named borrower may accept, and only once confirmed.
		if u.Borrower != borrower {
			return ErrNotYourUOMe
		}
		if u.State == domain.UOMeAccepted {
			return nil // idempotent
		}
		if u.State != domain.UOMeConfirmed {
			return ErrNotConfirmed
		}

		// 3. Verify the borrower's signature over the stored terms.
		values := wire.Values{
			"group_uuid":  u.GroupUUID,
			"lender":      u.Lender,
			"borrower":    u.Borrower,
			"value":       u.Value,
			"description": u.Description,
			"uome_uuid":   u.UUID,
		}
		if err := wire.Verify(borrower, wire.KindAccept, wire.SigUser, userSig, values); err != nil {
			log.Warn("accept signature rejected", slog.Any("error", err))
			return err
		}

		// 4. Re-verify the stored issuer signature against the same terms.
		// If the record were ever tampered with, acceptance stops here.
		issueValues := wire.Values{
			"group_uuid":  u.GroupUUID,
			"lender":      u.Lender,
			"borrower":    u.Borrower,
			"value":       u.Value,
			"description": u.Description,
		}
		if err := wire.Verify(u.Lender, wire.KindIssue, wire.SigUser, u.IssuerSignature, issueValues); err != nil {
			log.Error("stored issuer signature no longer verifies",
				slog.String("uome_uuid", u.UUID),
			)
			return err
		}

		// 5. Record acceptance and move the balances.
		if err := tx.UOMes().Accept(ctx, u.UUID, userSig); err != nil {
			return err
		}
		if err := tx.Memberships().AdjustBalance(ctx, groupUUID, u.Lender, u.Value); err != nil {
			return err
		}
		if err := tx.Memberships().AdjustBalance(ctx, groupUUID, u.Borrower, -u.Value); err != nil {
			return err
		}

		// 6. Recompute the whole settlement plan from the new balances.
		balances, err := tx.Memberships().ListBalances(ctx, groupUUID)
		if err != nil {
			return err
		}
		plan := netting.Compute(balances)

		rows := make([]domain.Settlement, 0)
		for _, s := range plan.Flatten() {
			rows = append(rows, domain.Settlement{
				GroupUUID: groupUUID,
				Debtor:    s.Debtor,
				Creditor:  s.Creditor,
				Value:     s.Value,
			})
		}
		return tx.Settlements().ReplaceForGroup(ctx, groupUUID, rows)
	})
	if err != nil {
		return nil, err
	}

	log.Info("uome accepted",
		slog.String("group_uuid", groupUUID),
		slog.String("uome_uuid", uomeUUID),
	)

	return s.ack(groupUUID, uomeUUID, wire.KindAccept)
}

// Cancel deletes an unaccepted UOMe at the lender's request. The signature
// covers only the request fields, so cancelling an already-deleted uuid still
// verifies and succeeds. Once a borrower has accepted, the record is
// permanent; the remedy is an opposite UOMe.
func (s *UOMeService) Cancel(
	ctx context.Context,
	groupUUID string,
	lender cryptox.Identity,
	uomeUUID string,
	userSig []byte,
) ([]byte, error) {
	log := slogx.FromContext(ctx)

	// 1. Verify the lender's cancellation signature.
	values := wire.Values{
		"group_uuid": groupUUID,
		"lender":     lender,
		"uome_uuid":  uomeUUID,
	}
	if err := wire.Verify(lender, wire.KindCancel, wire.SigUser, userSig, values); err != nil {
		log.Warn("cancel signature rejected", slog.Any("error", err))
		return nil, err
	}

	// 2. Delete if the UOMe still exists and is still cancellable.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.UOMes().GetUOMe(ctx, groupUUID, uomeUUID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil // already gone; idempotent
			}
			return err
		}
		if u.Lender != lender {
			return ErrNotYourUOMe
		}
		if u.State == domain.UOMeAccepted {
			return ErrAlreadyAccepted
		}
		return tx.UOMes().DeleteUOMe(ctx, u.UUID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("uome cancelled",
		slog.String("group_uuid", groupUUID),
		slog.String("uome_uuid", uomeUUID),
	)

	return s.ack(groupUUID, uomeUUID, wire.KindCancel)
}

// ack signs the {group_uuid, uome_uuid} acknowledgement tuple shared by the
// confirm, accept and cancel responses.
func (s *UOMeService) ack(groupUUID, uomeUUID string, kind wire.Kind) ([]byte, error) {
	return wire.Sign(s.Signer, kind, wire.SigMain, wire.Values{
		"group_uuid": groupUUID,
		"uome_uuid":  uomeUUID,
	})
}
