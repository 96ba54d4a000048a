package http

import (
	"net/http"

	"github.com/aussiebroadwan/uome/internal/ledger/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

type MainJoinHandler struct {
	MembershipService *service.MembershipService
}

func (h *MainJoinHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindMainJoin)
	if !ok {
		return
	}

	groupUUID := rec.String("group_uuid")
	user := cryptox.Identity(rec.String("user"))

	mainSig, err := h.MembershipService.Join(r.Context(), groupUUID, user, rec.Bytes("group_signature"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindMainJoin, wire.Values{
		"group_uuid":     groupUUID,
		"user":           string(user),
		"main_signature": mainSig,
	})
}
