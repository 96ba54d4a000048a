package http

import (
	"net/http"

	"github.com/aussiebroadwan/uome/internal/ledger/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

type RegisterGroupHandler struct {
	RegistryService *service.RegistryService
}

func (h *RegisterGroupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec, ok := readRequest(w, r, wire.KindRegisterGroup)
	if !ok {
		return
	}

	groupUUID, mainSig, err := h.RegistryService.RegisterGroup(
		r.Context(),
		rec.String("group_name"),
		cryptox.Identity(rec.String("group_key")),
		rec.Bytes("group_signature"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeResponse(w, r, wire.KindRegisterGroup, wire.Values{
		"group_uuid":     groupUUID,
		"main_signature": mainSig,
	})
}
