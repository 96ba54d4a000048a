package http

import (
	"net/http"

	"github.com/aussiebroadwan/uome/internal/group/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

type InviteHandler struct {
	InviteService *service.InviteService
}

func (h *InviteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindInvite)
	if !ok {
		return
	}

	groupSig, err := h.InviteService.Invite(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("inviter")),
		cryptox.Identity(rec.String("invitee")),
		rec.String("invitee_email"),
		rec.Bytes("inviter_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindInvite, wire.Values{"group_signature": groupSig})
}
