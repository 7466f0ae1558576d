package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/config"
	"github.com/conveydesk/conveydesk/internal/logger"
	"github.com/conveydesk/conveydesk/internal/session"
)

type contextKey struct {
	name string
}

var sessionTokenKey = contextKey{"session-token"}

func ContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey, token)
}

func ContextSessionToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenKey).(string)
	return token, ok
}

// RequireAuth checks the session cookie and stores the token in the request context.
//
// Expired JWTs are rejected here and the cookie is cleared. Tokens that are not JWTs are forwarded unchanged and the API decides.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		var token string
		if cookie, err := r.Cookie(config.SessionCookieName); err == nil {
			token = cookie.Value
		}

		status := session.CheckTokenStatus(token, s.now())
		switch status {
		case session.TokenMissing:
			reqLogger.Debug("authentication failed - no session cookie",
				slog.String("component", "gateway.RequireAuth"),
			)
			respondWithError(w, r, http.StatusUnauthorized, client.MsgUnauthorized)
			return
		case session.TokenExpired:
			reqLogger.Debug("authentication failed - session expired",
				slog.String("component", "gateway.RequireAuth"),
			)
			s.clearSessionCookie(w)
			respondWithError(w, r, http.StatusUnauthorized, client.MsgUnauthorized)
			return
		}

		reqLogger.Debug("authentication check successful",
			slog.String("component", "gateway.RequireAuth"),
			slog.String("status", status.String()),
		)
		next.ServeHTTP(w, r.WithContext(ContextWithSessionToken(r.Context(), token)))
	})
}

// setSessionCookie stores the token in an HttpOnly cookie that lives as long as the token when it carries an exp claim.
// Tokens without one get a browser-session cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.IsProd(),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   cookieMaxAge(token, s.now()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.IsProd(),
		SameSite: http.SameSiteStrictMode,
	})
}

func cookieMaxAge(token string, now time.Time) int {
	expiresAt, ok, err := session.TokenExpiry(token)
	if err != nil || !ok {
		return 0
	}
	seconds := int(expiresAt.Sub(now).Seconds())
	if seconds < 1 {
		// already expired: let RequireAuth reject it on the next request
		return 0
	}
	return seconds
}
