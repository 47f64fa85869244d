// Package httpx holds the JSON response helpers shared by every handler.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/logger"
)

// UnavailableMessage is shown whenever the document store call failed.
const UnavailableMessage = "We could not reach the store right now. Please try again."

// Respond writes body as JSON with status.
func Respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Error maps err onto a status code and a JSON error body.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		Respond(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, apperr.ErrNotFound):
		Respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrUnauthorized):
		Respond(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		Respond(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		Respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrUnprocessable):
		Respond(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrTooManyRequests):
		Respond(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrUnavailable):
		logger.FromCtx(r.Context()).Error("document store call failed", "error", err)
		Respond(w, http.StatusBadGateway, map[string]string{"error": UnavailableMessage})
	default:
		logger.FromCtx(r.Context()).Error("unhandled error", "error", err)
		Respond(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// Decode reads a JSON request body into dst. A malformed body becomes a
// validation error on the "body" field.
func Decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("body", err.Error())
	}
	return nil
}
