package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/uome/internal/ledger/service"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/httpx"
	"github.com/aussiebroadwan/uome/pkg/slogx"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

const maxBodyBytes = 1 << 20

// readRequest reads and decodes the request body into a validated record.
// A nil error means the record carries every declared field with the right
// type; failures have already been written to the response.
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

// writeResponse validates and encodes a response record.
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

// writeServiceError maps a service error onto the protocol's HTTP taxonomy.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var schemaErr *wire.SchemaError
	var typeErr *wire.TypeMismatchError
	var decodeErr *wire.DecodeError
	var sigNameErr *wire.UnknownSignatureError
	var sigFieldErr *wire.MissingSignatureFieldError

	switch {
	case errors.As(err, &schemaErr), errors.As(err, &typeErr), errors.As(err, &decodeErr),
		errors.As(err, &sigNameErr), errors.As(err, &sigFieldErr):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, cryptox.ErrInvalidSignature), errors.Is(err, cryptox.ErrInvalidIdentity):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_signature", "Signature verification failed")

	case errors.Is(err, service.ErrNotAMember),
		errors.Is(err, service.ErrNotYourUOMe),
		errors.Is(err, service.ErrAlreadyAccepted):
		httpx.WriteError(w, http.StatusForbidden, "permission_denied", err.Error())

	case errors.Is(err, service.ErrGroupExists),
		errors.Is(err, service.ErrNotConfirmed):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrUOMeNotFound),
		errors.Is(err, service.ErrCounterpartyUnknown):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, service.ErrInvalidValue),
		errors.Is(err, service.ErrSelfLoan),
		errors.Is(err, service.ErrDescriptionTooLong),
		errors.Is(err, service.ErrInvalidGroupKey):
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal error")
	}
}
