package middleware

import (
	"context"
	"errors"
	"net/http"

	authkit "github.com/beginco/authkit"
	"github.com/beginco/authkit/roles"
)

type principalContextKey struct{}

// PrincipalFromContext returns the authentication result injected by Guard.
func PrincipalFromContext(ctx context.Context) (*authkit.Result, bool) {
	res, ok := ctx.Value(principalContextKey{}).(*authkit.Result)
	return res, ok
}

// httpRequest adapts *http.Request to the engine's request surface.
type httpRequest struct {
	r *http.Request
}

func (h httpRequest) Header(name string) string {
	return h.r.Header.Get(name)
}

func (h httpRequest) RemoteAddr() string {
	return h.r.RemoteAddr
}

// Guard returns middleware enforcing the given policy on every request.
// An open policy admits the request without credentials; the injected
// principal then carries nil Claims. Failures map to status codes without
// leaking which check failed: 403 for an insufficient role, 401 with a
// distinct message for expiry so clients can silently re-authenticate, and
// a generic 401 for everything else. On success the refresh hint header is
// set when advised and the verified principal is injected into the request
// context.
func Guard(engine *authkit.Engine, policy roles.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, authkit.ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			ctx := authkit.WithClientIP(r.Context(), r.RemoteAddr)

			res, err := engine.Authenticate(ctx, httpRequest{r: r}, policy)
			if err != nil {
				switch {
				case errors.Is(err, authkit.ErrForbidden):
					http.Error(w, authkit.ErrForbidden.Error(), http.StatusForbidden)
				case errors.Is(err, authkit.ErrExpiredAuthorization):
					http.Error(w, authkit.ErrExpiredAuthorization.Error(), http.StatusUnauthorized)
				default:
					http.Error(w, authkit.ErrUnauthorized.Error(), http.StatusUnauthorized)
				}
				return
			}

			if res.RefreshAdvised {
				w.Header().Set(authkit.RefreshHeader, "true")
			}

			ctx = context.WithValue(r.Context(), principalContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteGrant emits the CSRF nonce header the client must echo on every
// subsequent request. The token itself travels in the response body, in
// whatever shape the application chooses.
func WriteGrant(w http.ResponseWriter, grant *authkit.Grant) {
	if grant == nil {
		return
	}
	w.Header().Set(authkit.CSRFHeader, grant.CSRF)
}
