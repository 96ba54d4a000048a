package http

import (
	"net/http"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/internal/ledger/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

type QueryHandler struct {
	QueryService *service.QueryService
}

func (h *QueryHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindPending)
	if !ok {
		return
	}

	waitingOnOthers, waitingOnUser, err := h.QueryService.Pending(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("user")),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindPending, wire.Values{
		"waiting_on_others": toEntries(waitingOnOthers),
		"waiting_on_user":   toEntries(waitingOnUser),
	})
}

func (h *QueryHandler) HandleTotals(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindTotals)
	if !ok {
		return
	}

	balance, settlements, err := h.QueryService.Totals(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("user")),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindTotals, wire.Values{
		"balance":     balance,
		"settlements": settlements,
	})
}

func toEntries(uomes []domain.UOMe) []wire.UOMeEntry {
	entries := make([]wire.UOMeEntry, 0, len(uomes))
	for _, u := range uomes {
		entries = append(entries, wire.UOMeEntry{
			UOMeUUID:        u.UUID,
			GroupUUID:       u.GroupUUID,
			Lender:          u.Lender,
			Borrower:        u.Borrower,
			Value:           u.Value,
			Description:     u.Description,
			IssuerSignature: u.IssuerSignature,
		})
	}
	return entries
}
