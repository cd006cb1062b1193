package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
	wrap "github.com/Temutjin2k/dispatch-ops/pkg/logger/wrapper"
)

const internalErrorMessage = "internal server error"

func errorResponse(w http.ResponseWriter, status int, kind types.Kind, message string) {
	writeError(w, status, envelope{"kind": kind, "message": message})
}

func writeError(w http.ResponseWriter, status int, body envelope) {
	// If writing fails fall back to an empty response with the same status.
	if err := writeJSON(w, status, envelope{"error": body}, nil); err != nil {
		w.WriteHeader(status)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
// Clients that receive a 422 response should expect that repeating the request
// without modification will fail with the same error.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	writeError(w, http.StatusUnprocessableEntity, envelope{
		"kind":    types.KindValidation,
		"message": "invalid request data",
		"fields":  errors,
	})
}

// badRequestResponse is used for bodies and parameters that could not be parsed.
func badRequestResponse(w http.ResponseWriter, message string) {
	errorResponse(w, http.StatusUnprocessableEntity, types.KindValidation, message)
}

// internalErrorResponse never exposes the underlying error.
func internalErrorResponse(w http.ResponseWriter) {
	errorResponse(w, http.StatusInternalServerError, types.KindPersistence, internalErrorMessage)
}

// GetCode maps an error kind to the HTTP status.
func GetCode(kind types.Kind) int {
	switch kind {
	case types.KindValidation, types.KindInvalidInput, types.KindInvalidIssueType, types.KindInvalidIssueStatus:
		return http.StatusUnprocessableEntity
	case types.KindConflict, types.KindInvalidTransition:
		return http.StatusConflict
	case types.KindUnauthenticated:
		return http.StatusUnauthorized
	case types.KindForbidden, types.KindAccountDisabled:
		return http.StatusForbidden
	case types.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// serviceErrorResponse logs err and writes it with its kind. Persistence
// failures are logged as errors and reported without detail.
func serviceErrorResponse(ctx context.Context, l logger.Logger, w http.ResponseWriter, msg string, err error) {
	kind := types.KindOf(err)
	status := GetCode(kind)
	ctx = wrap.ErrorCtx(ctx, err)

	if status == http.StatusInternalServerError {
		l.Error(ctx, msg, err)
		internalErrorResponse(w)
		return
	}

	l.Warn(ctx, msg, "error", err.Error(), "kind", kind)
	errorResponse(w, status, kind, err.Error())
}

// respond writes a successful response and logs a failed write.
func respond(ctx context.Context, l logger.Logger, w http.ResponseWriter, status int, data envelope) {
	if err := writeJSON(w, status, data, nil); err != nil {
		l.Error(ctx, "failed to write response", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
