package session

import (
	"net/http"
	"time"

	"vitrine/pkg/requestcontext"
)

// CookieName carries the guest session token ID between requests. The token
// itself (with expiry) lives server-side in the Store.
const CookieName = "vitrine_session"

// Middleware resolves a guest session for requests that carry no
// authenticated actor, refreshing the cookie when the token rotates.
// Authenticated requests pass through untouched: user identity supersedes
// the guest session.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.ActorFrom(ctx).Anonymous() {
				next.ServeHTTP(w, r)
				return
			}

			presented := ""
			if c, err := r.Cookie(CookieName); err == nil {
				presented = c.Value
			}

			tok := resolver.Resolve(ctx, presented)
			if tok.ID != presented {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    tok.ID,
					Path:     "/",
					Expires:  tok.ExpiresAt,
					MaxAge:   int(time.Until(tok.ExpiresAt) / time.Second),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = requestcontext.WithActor(ctx, requestcontext.Actor{SessionID: tok.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
