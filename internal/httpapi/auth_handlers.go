package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"dcpr.org/internal/audit"
	"dcpr.org/internal/auth"
)

type tokenRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "name and password are required")
		return
	}

	user, err := auth.Authenticate(r.Context(), a.dir, name, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}

	principal, err := auth.ResolvePrincipal(r.Context(), a.dir, user.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}

	token, expiresAt, err := a.tokens.Issue(principal)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"user":       principal.UserID,
		"sysadmin":   principal.Sysadmin,
		"orgs":       principal.Organizations,
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
