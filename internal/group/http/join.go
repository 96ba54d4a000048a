package http

import (
	"net/http"

	"github.com/aussiebroadwan/uome/internal/group/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

type JoinHandler struct {
	JoinService *service.JoinService
}

func (h *JoinHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindJoin)
	if !ok {
		return
	}

	invitation, groupSig, err := h.JoinService.Join(
		r.Context(),
		rec.String("group_uuid"),
		cryptox.Identity(rec.String("user")),
		rec.String("secret_code"),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindJoin, wire.Values{
		"inviter":           string(invitation.Inviter),
		"invitee_email":     invitation.InviteeEmail,
		"inviter_signature": invitation.InviterSignature,
		"group_signature":   groupSig,
	})
}

func (h *JoinHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindConfirmJoin)
	if !ok {
		return
	}

	groupUUID := rec.String("group_uuid")
	user := cryptox.Identity(rec.String("user"))

	mainSig, err := h.JoinService.ConfirmJoin(
		r.Context(),
		groupUUID,
		user,
		rec.Bytes("group_signature"),
		rec.Bytes("user_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindConfirmJoin, wire.Values{
		"group_uuid":     groupUUID,
		"user":           string(user),
		"main_signature": mainSig,
	})
}
