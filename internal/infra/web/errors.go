package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/infra/logging"
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable"`
}

type errorMapping struct {
	err       error
	status    int
	code      string
	retryable bool
}

// Ordered: the first match wins.
var errorTable = []errorMapping{
	{domain.ErrQuotaExhausted, http.StatusPaymentRequired, "quota_exhausted", false},
	{domain.ErrInvalidPlan, http.StatusBadRequest, "invalid_plan", false},
	{domain.ErrInvalidPhoneNumber, http.StatusBadRequest, "invalid_phone_number", false},
	{domain.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", false},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden", false},
	{domain.ErrNotFound, http.StatusNotFound, "not_found", false},
	{domain.ErrTerminalStateViolation, http.StatusConflict, "terminal_state_violation", false},
	{domain.ErrConflict, http.StatusConflict, "conflict", true},
	{domain.ErrPaymentInProgress, http.StatusConflict, "payment_in_progress", true},
	{domain.ErrAlreadyExists, http.StatusConflict, "already_exists", false},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a use-case error onto the HTTP contract. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	l := logging.With(r.Context(), logger)
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			if m.err == domain.ErrTerminalStateViolation {
				l.Error().Err(err).Str("path", r.URL.Path).Msg("write on terminal listing")
			}
			writeJSON(w, m.status, errorBody{Error: m.code, Message: m.err.Error(), Retryable: m.retryable})
			return
		}
	}
	l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "internal error", Retryable: true})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_argument", Message: msg})
}
