package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

type ctxKey int

const actorKey ctxKey = iota

// Authenticate resolves the bearer token into an auth.Actor. Requests
// without a valid token stop here with 401.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			h.writeError(w, r, generic.ErrUnauthenticated)
			return
		}
		actor, err := h.Tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// actorFrom returns the caller set by Authenticate.
func actorFrom(r *http.Request) auth.Actor {
	actor, _ := r.Context().Value(actorKey).(auth.Actor)
	return actor
}
