package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/brewco/cafe-service/internal/booking"
	"github.com/brewco/cafe-service/internal/cafe"
	"github.com/brewco/cafe-service/internal/menu"
	"github.com/brewco/cafe-service/internal/order"
	"github.com/brewco/cafe-service/internal/staff"
)

// Machine-readable error kinds; polling clients branch on these, not on the
// message text.
const (
	KindValidation        = "VALIDATION_ERROR"
	KindInvalidTransition = "INVALID_TRANSITION"
	KindForbidden         = "FORBIDDEN"
	KindNotFound          = "NOT_FOUND"
	KindConflict          = "CONFLICT"
	KindUnauthorized      = "UNAUTHORIZED"
	KindInternal          = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type validationErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind"`
	Details map[string]string `json:"details"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response","kind":"INTERNAL"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func respondWithError(w http.ResponseWriter, code int, kind, message string) {
	respondWithJSON(w, code, errorResponse{Error: message, Kind: kind})
}

// respondMappedError translates domain errors into the HTTP error contract.
// State machine errors pass through untranslated; only the status code and
// kind are attached here.
func respondMappedError(w http.ResponseWriter, err error) {
	var transitionErr *order.TransitionError
	var validationErr *order.ValidationError

	switch {
	case errors.As(err, &transitionErr):
		respondWithError(w, http.StatusConflict, KindInvalidTransition, transitionErr.Error())
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, KindValidation, validationErr.Error())
	case errors.Is(err, order.ErrForbidden), errors.Is(err, staff.ErrNotAssigned):
		respondWithError(w, http.StatusForbidden, KindForbidden, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, booking.ErrNotFound),
		errors.Is(err, cafe.ErrNotFound),
		errors.Is(err, cafe.ErrTableNotFound),
		errors.Is(err, menu.ErrNotFound),
		errors.Is(err, staff.ErrNotFound):
		respondWithError(w, http.StatusNotFound, KindNotFound, err.Error())
	case errors.Is(err, order.ErrConflict), errors.Is(err, booking.ErrTableUnavailable):
		respondWithError(w, http.StatusConflict, KindConflict, err.Error())
	default:
		log.Error().Err(err).Msg("unhandled error at gateway boundary")
		respondWithError(w, http.StatusInternalServerError, KindInternal, "internal error")
	}
}

func respondValidationErrors(w http.ResponseWriter, err error) bool {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = "failed validation rule: " + fieldErr.Tag()
	}
	respondWithJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "Validation failed",
		Kind:    KindValidation,
		Details: details,
	})
	return true
}

func decodeAndValidate(r *http.Request, validate *validator.Validate, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
