package http

import (
	"net/http"

	"github.com/aussiebroadwan/uome/internal/ledger/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// UOMeHandler serves the four lifecycle endpoints. One handler per verb keeps
// the decode/verify/respond shape identical across them.
type UOMeHandler struct {
	UOMeService *service.UOMeService
}

func (h *UOMeHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindIssue)
	if !ok {
		return
	}

	uomeUUID, mainSig, err := h.UOMeService.Issue(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("lender")),
		cryptox.Identity(rec.String("borrower")),
		rec.Int("value"),
		rec.String("description"),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindIssue, wire.Values{
		"uome_uuid":      uomeUUID,
		"main_signature": mainSig,
	})
}

func (h *UOMeHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindConfirm)
	if !ok {
		return
	}

	mainSig, err := h.UOMeService.Confirm(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("lender")),
		rec.String("uome_uuid"),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindConfirm, wire.Values{"main_signature": mainSig})
}

func (h *UOMeHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindAccept)
	if !ok {
		return
	}

	mainSig, err := h.UOMeService.Accept(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("borrower")),
		rec.String("uome_uuid"),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindAccept, wire.Values{"main_signature": mainSig})
}

func (h *UOMeHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindCancel)
	if !ok {
		return
	}

	mainSig, err := h.UOMeService.Cancel(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("lender")),
		rec.String("uome_uuid"),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindCancel, wire.Values{"main_signature": mainSig})
}
