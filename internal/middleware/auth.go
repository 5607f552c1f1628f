package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/nkoval/tasktrack/internal/models"
	"github.com/nkoval/tasktrack/internal/store"
)

// SessionCookie names the browser cookie holding the session id.
const SessionCookie = "session_id"

// cookieMaxAge covers the longest login lifetime ("remember me"), so
// the cookie never expires before its Redis binding.
const cookieMaxAge = 30 * 24 * time.Hour

const serverErrMsg = "Something went wrong. Please try again."

type ctxKey int

const (
	sessionKey ctxKey = iota
	userKey
)

// SessionReader resolves a session id to a user id.
type SessionReader interface {
	UserID(ctx context.Context, sid string) (string, error)
}

// UserLoader loads a user by persisted identifier.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Session issues the session cookie when absent and resolves the
// current principal into the request context. Handlers downstream read
// it with UserFrom; it is nil for anonymous requests. The cookie is
// issued before login so flash messages work for anonymous sessions
// and survive logout.
func Session(sessions SessionReader, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				sid = cookie.Value
			}
			if sid == "" {
				sid = uuid.New().String()
				http.SetCookie(w, newCookie(sid))
			}

			ctx := context.WithValue(r.Context(), sessionKey, sid)

			userID, err := sessions.UserID(ctx, sid)
			if err != nil {
				slog.Error("resolve session", "error", err)
				http.Error(w, serverErrMsg, http.StatusInternalServerError)
				return
			}
			if userID != "" {
				user, err := users.GetUserByID(ctx, userID)
				switch {
				case err == nil:
					ctx = context.WithValue(ctx, userKey, user)
				case errors.Is(err, store.ErrNotFound):
					// Stale session for a user that no longer
					// exists; treat as anonymous.
				default:
					slog.Error("load principal", "user_id", userID, "error", err)
					http.Error(w, serverErrMsg, http.StatusInternalServerError)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newCookie(sid string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookieMaxAge / time.Second),
	}
}

// RotateSession replaces the request's session id with a fresh one and
// sets the matching cookie. Called at login so a session id presented
// before authentication never names a logged-in session.
func RotateSession(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	sid := uuid.New().String()
	http.SetCookie(w, newCookie(sid))
	return r.WithContext(context.WithValue(r.Context(), sessionKey, sid)), sid
}

// RequireAuth redirects anonymous requests to the login page,
// preserving the originally requested destination in the next
// parameter.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionID returns the session id issued for this request.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey).(string)
	return sid
}

// UserFrom returns the authenticated principal, or nil.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}
