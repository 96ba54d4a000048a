package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/internal/ledger/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// QueryService serves the read-only member queries: pending UOMes and debt
// totals. Queries mutate nothing, but they are still member-gated and
// signature-checked like every other operation.
type QueryService struct {
	Store store.Store
}

// Pending returns the requester's open UOMes split by whose action they wait
// on: UOMes the requester issued that others have not accepted, and confirmed
// UOMes naming the requester as borrower. Each entry carries the stored
// issuer signature so the client can re-verify the terms itself.
func (s *QueryService) Pending(
	ctx context.Context,
	groupUUID string,
	user cryptox.Identity,
	userSig []byte,
) (waitingOnOthers, waitingOnUser []domain.UOMe, err error) {
	log := slogx.FromContext(ctx)

	// 1. Requester must be a member.
	if _, err := requireMember(ctx, s.Store, groupUUID, user); err != nil {
		return nil, nil, err
	}

	// 2. Verify the query signature.
	values := wire.Values{"group_uuid": groupUUID, "user": user}
	if err := wire.Verify(user, wire.KindPending, wire.SigUser, userSig, values); err != nil {
		log.Warn("pending query signature rejected", slog.Any("error", err))
		return nil, nil, err
	}

	// 3. Collect both directions.
	waitingOnOthers, err = s.Store.UOMes().ListByLender(ctx, groupUUID, user)
	if err != nil {
		log.Error("failed to list lender uomes", slog.Any("error", err))
		return nil, nil, err
	}
	waitingOnUser, err = s.Store.UOMes().ListAwaitingBorrower(ctx, groupUUID, user)
	if err != nil {
		log.Error("failed to list borrower uomes", slog.Any("error", err))
		return nil, nil, err
	}

	return waitingOnOthers, waitingOnUser, nil
}

// Totals returns the requester's balance and their slice of the current
// settlement plan. A positive settlement value means the requester owes the
// counterparty; negative means the counterparty owes them.
func (s *QueryService) Totals(
	ctx context.Context,
	groupUUID string,
	user cryptox.Identity,
	userSig []byte,
) (int64, []wire.SettlementEntry, error) {
	log := slogx.FromContext(ctx)

	// 1. Requester must be a member; the membership row carries the balance.
	member, err := requireMember(ctx, s.Store, groupUUID, user)
	if err != nil {
		return 0, nil, err
	}

	// 2. Verify the query signature.
	values := wire.Values{"group_uuid": groupUUID, "user": user}
	if err := wire.Verify(user, wire.KindTotals, wire.SigUser, userSig, values); err != nil {
		log.Warn("totals query signature rejected", slog.Any("error", err))
		return 0, nil, err
	}

	// 3. Project the settlement rows onto the requester.
	rows, err := s.Store.Settlements().ListForMember(ctx, groupUUID, user)
	if err != nil {
		log.Error("failed to list settlements", slog.Any("error", err))
		return 0, nil, err
	}

	entries := make([]wire.SettlementEntry, 0, len(rows))
	for _, row := range rows {
		if row.Debtor == user {
			entries = append(entries, wire.SettlementEntry{
				Counterparty: row.Creditor,
				Value:        row.Value,
			})
		} else {
			entries = append(entries, wire.SettlementEntry{
				Counterparty: row.Debtor,
				Value:        -row.Value,
			})
		}
	}

	return member.Balance, entries, nil
}
