package http

import (
	"context"
	"net/http"
	"strings"
)

const HeaderUserID = "X-User-ID"

type userIDKey struct{}

// UserIDMiddleware trusts the X-User-ID header set by the edge proxy.
// TODO: replace with JWT validation once an identity provider is wired.
func UserIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
