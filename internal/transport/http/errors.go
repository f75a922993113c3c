package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eveul/storefront/internal/domain"
	"github.com/hashicorp/go-hclog"
)

// statusFor maps an error kind to the HTTP status returned to the client
func statusFor(err error) int {
	var verrs domain.ValidationErrors
	switch domain.KindOf(err) {
	case domain.NotFound:
		return http.StatusNotFound
	case domain.Mismatch:
		return http.StatusBadRequest
	case domain.InvalidInput:
		if errors.As(err, &verrs) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case domain.Conflict:
		return http.StatusConflict
	case domain.StorageFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an ErrorResponse. Only the user-facing message
// of err reaches the client.
func writeError(w http.ResponseWriter, log hclog.Logger, err error) {
	kind := domain.KindOf(err)
	if kind == domain.Unexpected {
		log.Error("Unexpected error", "error", err)
	}
	resp := ErrorResponse{Kind: kind.String(), Message: domain.MessageOf(err)}

	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Messages = verrs.Messages()
	}

	writeJSON(w, log, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, log hclog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error serializing response", "error", err)
	}
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
