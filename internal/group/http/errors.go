package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/uome/internal/group/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/httpx"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/uomesdk"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

const maxBodyBytes = 1 << 20

func readRequest(w http.ResponseWriter, r *http.Request, kind wire.Kind) (wire.Record, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Unable to read request body")
		return wire.Record{}, false
	}

	rec, err := wire.Decode(kind, wire.Request, body)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return wire.Record{}, false
	}
	return rec, true
}

func writeResponse(w http.ResponseWriter, r *http.Request, kind wire.Kind, values wire.Values) {
	rec, err := wire.Make(kind, wire.Response, values)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to build response record", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to build response")
		return
	}
	body, err := wire.Encode(rec)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to encode response", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to encode response")
		return
	}
	httpx.WriteRaw(w, http.StatusOK, body)
}

// writeServiceError maps a group service error onto the protocol's HTTP
// taxonomy. Failures while talking to the ledger surface as 502 so the
// client can tell "the group refused" from "the group could not get through".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var transportErr *uomesdk.TransportError
	var apiErr *uomesdk.APIError

	switch {
	case errors.Is(err, cryptox.ErrInvalidSignature), errors.Is(err, cryptox.ErrInvalidIdentity):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_signature", "Signature verification failed")

	case errors.Is(err, service.ErrInviterNotMember),
		errors.Is(err, service.ErrInvitationNotFound),
		errors.Is(err, service.ErrSecretMismatch),
		errors.Is(err, service.ErrNotInvited):
		httpx.WriteError(w, http.StatusForbidden, "permission_denied", err.Error())

	case errors.Is(err, service.ErrInviteeAlreadyMember),
		errors.Is(err, service.ErrInvitationUsed):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, service.ErrWrongGroup):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.As(err, &transportErr), errors.As(err, &apiErr):
		slogx.FromContext(r.Context()).Error("ledger call failed", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "ledger_unavailable", "The ledger authority rejected or did not answer the request")

	case errors.Is(err, service.ErrNotRegistered):
		httpx.WriteError(w, http.StatusServiceUnavailable, "not_registered", err.Error())

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal error")
	}
}
