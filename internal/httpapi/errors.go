package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"dcpr.org/internal/audit"
	"dcpr.org/internal/auth"
	"dcpr.org/internal/dcpr"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps the workflow error taxonomy to HTTP statuses. Gate
// denials are 403 when the caller is authenticated and 401 when anonymous.
func (a *API) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *dcpr.ValidationError
	var nerr *dcpr.NotAuthorizedError
	switch {
	case errors.As(err, &verr):
		payload := map[string]any{
			"error":  "invalid payload",
			"fields": verr.Fields,
		}
		if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
		writeJSON(w, http.StatusBadRequest, payload)
	case errors.As(err, &nerr):
		code := http.StatusForbidden
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			code = http.StatusUnauthorized
		}
		writeError(w, r, code, nerr.Reason)
	case errors.Is(err, dcpr.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "request not found")
	case errors.Is(err, dcpr.ErrInvalidAction):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, dcpr.ErrUnhandledTransition):
		// A reachable status/action pair the lattice does not define is a
		// server bug, not a client mistake.
		writeError(w, r, http.StatusInternalServerError, "unhandled workflow transition")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func reviewBodyVar(raw string) (dcpr.ReviewBody, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(dcpr.BodyNSIF):
		return dcpr.BodyNSIF, true
	case string(dcpr.BodyCSI):
		return dcpr.BodyCSI, true
	}
	return "", false
}
