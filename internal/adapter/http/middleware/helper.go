package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
)

type errorDetail struct {
	Kind    types.Kind `json:"kind"`
	Message string     `json:"message"`
}

// errorBody matches the envelope written by the handlers.
type errorBody struct {
	Error errorDetail `json:"error"`
}

func errorResponse(w http.ResponseWriter, status int, kind types.Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Kind: kind, Message: message}})
}
