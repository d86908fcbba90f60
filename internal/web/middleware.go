package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/erazemk/atlas/internal/atlas"
	"github.com/erazemk/atlas/internal/auth"
	"github.com/erazemk/atlas/internal/store"
)

// Console-owned cookies. Every other cookie belongs to the backend.
const (
	SessionCookie = "atlas_panel"
	CSRFCookie    = "atlas_csrf"
)

type webContextKey string

const webClaimsKey webContextKey = "webclaims"

// SessionMiddleware resolves the panel session from its cookie, issuing a new
// one when the cookie is missing, invalid or revoked. It also attaches the
// browser's backend cookies to the request context for the backend client.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := s.sessionClaims(r)
		if claims == nil {
			var err error
			claims, err = s.issueSession(w, "")
			if err != nil {
				slog.Error("failed to issue console session", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), webClaimsKey, claims)
		ctx = atlas.WithCookies(ctx, backendCookies(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionClaims validates the session cookie and checks revocation.
func (s *Server) sessionClaims(r *http.Request) *auth.Claims {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value)
	if err != nil {
		return nil
	}

	revoked, err := store.IsTokenRevoked(r.Context(), s.DB, claims.ID)
	if err != nil {
		slog.Error("failed to check token revocation", "error", err)
		return nil
	}
	if revoked {
		return nil
	}
	return claims
}

// issueSession starts a new panel session and sets its cookie.
func (s *Server) issueSession(w http.ResponseWriter, email string) (*auth.Claims, error) {
	token, err := auth.GenerateToken(s.JWTSecret, uuid.NewString(), email, s.SessionTTL)
	if err != nil {
		return nil, err
	}
	claims, err := auth.ValidateToken(s.JWTSecret, token)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return claims, nil
}

// clearSessionCookie clears the session cookie with consistent attributes.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// backendCookies returns the request cookies that are not owned by the console.
func backendCookies(r *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range r.Cookies() {
		if c.Name != SessionCookie && c.Name != CSRFCookie {
			out = append(out, c)
		}
	}
	return out
}

// GetWebClaims retrieves the session claims from web context.
func GetWebClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(webClaimsKey).(*auth.Claims)
	return claims
}
