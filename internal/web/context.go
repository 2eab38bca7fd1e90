package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/gamedata/internal/core"
)

// actorContext records the client address as the actor of whatever the
// request changes, for the transfer history.
func actorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithActor(r.Context(), clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP is RemoteAddr without the port. TrustedRealIP has already
// replaced it when the request came through a trusted proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
