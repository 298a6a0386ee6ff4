package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"dcpr.org/internal/auth"
	"dcpr.org/internal/dcpr"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth resolves an optional bearer token into a principal. A missing
// token leaves the request anonymous; visibility and the per-operation gate
// decide what an anonymous caller may do. A present but invalid token is
// rejected outright.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get(authHeader))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		principal, err := a.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

// actorFrom converts the request's principal, if any, into a workflow actor.
func actorFrom(r *http.Request) dcpr.Actor {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return dcpr.Actor{}
	}
	return dcpr.Actor{
		ID:            p.UserID,
		Sysadmin:      p.Sysadmin,
		Organizations: p.Organizations,
	}
}

func extractBearerToken(header string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
