package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nkoval/tasktrack/internal/forms"
	"github.com/nkoval/tasktrack/internal/middleware"
	"github.com/nkoval/tasktrack/internal/models"
	"github.com/nkoval/tasktrack/internal/store"
	"github.com/nkoval/tasktrack/internal/view"
)

const serverErrMsg = "Something went wrong. Please try again."

// UserStore defines the interface for user persistence.
type UserStore interface {
	forms.UserDirectory
	CreateUser(ctx context.Context, username, email, hashedPw string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Sessions is the session-state surface the auth handlers need.
type Sessions interface {
	Login(ctx context.Context, sid, userID string, remember bool) error
	Logout(ctx context.Context, sid string) error
	AddFlash(ctx context.Context, sid string, f models.Flash) error
	TakeFlashes(ctx context.Context, sid string) ([]models.Flash, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users    UserStore
	sessions Sessions
	view     *view.Renderer
}

func NewHandler(users UserStore, sessions Sessions, v *view.Renderer) *Handler {
	return &Handler{users: users, sessions: sessions, view: v}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data *view.Data) {
	ctx := r.Context()
	data.User = middleware.UserFrom(ctx)
	flashes, err := h.sessions.TakeFlashes(ctx, middleware.SessionID(ctx))
	if err != nil {
		slog.Error("load flashes", "error", err)
	}
	data.Flashes = flashes
	if err := h.view.Render(w, status, page, data); err != nil {
		slog.Error("render page", "page", page, "error", err)
	}
}

func (h *Handler) flash(r *http.Request, level, message string) {
	ctx := r.Context()
	if err := h.sessions.AddFlash(ctx, middleware.SessionID(ctx), models.Flash{Level: level, Message: message}); err != nil {
		slog.Error("add flash", "error", err)
	}
}

// Register handles GET and POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	form := &forms.RegistrationForm{Errors: forms.Errors{}}
	if r.Method == http.MethodPost {
		form = forms.NewRegistrationForm(r)
		ok, err := form.Validate(r.Context(), h.users)
		if err != nil {
			slog.Error("validate registration", "error", err)
			http.Error(w, serverErrMsg, http.StatusInternalServerError)
			return
		}
		if ok {
			hashed, err := HashPassword(form.Password)
			if err != nil {
				slog.Error("hash password", "error", err)
				http.Error(w, serverErrMsg, http.StatusInternalServerError)
				return
			}
			_, err = h.users.CreateUser(r.Context(), form.Username, form.Email, hashed)
			switch {
			case err == nil:
				h.flash(r, models.FlashSuccess, "Account created! You can now log in.")
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			case errors.Is(err, store.ErrDuplicate):
				// Lost a race with a concurrent registration;
				// re-check which constraint was hit before
				// blaming a field.
				taken, checkErr := h.users.UsernameExists(r.Context(), form.Username)
				if checkErr != nil {
					slog.Error("check username", "error", checkErr)
					http.Error(w, serverErrMsg, http.StatusInternalServerError)
					return
				}
				if taken {
					form.Errors["username"] = "That username is taken. Please choose another."
				} else {
					form.Errors["email"] = "That email is already registered."
				}
			default:
				slog.Error("create user", "error", err)
				http.Error(w, serverErrMsg, http.StatusInternalServerError)
				return
			}
		}
	}
	h.render(w, r, http.StatusOK, "register", &view.Data{Title: "Sign up", Form: form})
}

// Login handles GET and POST /login. The failure message never reveals
// whether the email or the password was wrong.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	next := sanitizeNext(r.URL.Query().Get("next"))

	form := &forms.LoginForm{Errors: forms.Errors{}}
	if r.Method == http.MethodPost {
		form = forms.NewLoginForm(r)
		if form.Validate() {
			user, err := h.users.GetUserByEmail(r.Context(), form.Email)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				slog.Error("load user", "error", err)
				http.Error(w, serverErrMsg, http.StatusInternalServerError)
				return
			}
			if user != nil && CheckPassword(user.Password, form.Password) {
				// Rotate the session id so a cookie fixated
				// before authentication never becomes a
				// logged-in session.
				prevSID := middleware.SessionID(r.Context())
				var sid string
				r, sid = middleware.RotateSession(w, r)
				if pending, err := h.sessions.TakeFlashes(r.Context(), prevSID); err != nil {
					slog.Error("migrate flashes", "error", err)
				} else {
					for _, f := range pending {
						if err := h.sessions.AddFlash(r.Context(), sid, f); err != nil {
							slog.Error("migrate flashes", "error", err)
						}
					}
				}
				if err := h.sessions.Login(r.Context(), sid, user.ID, form.Remember); err != nil {
					slog.Error("create session", "error", err)
					http.Error(w, serverErrMsg, http.StatusInternalServerError)
					return
				}
				h.flash(r, models.FlashSuccess, "Logged in successfully.")
				if next == "" {
					next = "/dashboard"
				}
				http.Redirect(w, r, next, http.StatusSeeOther)
				return
			}
			h.flash(r, models.FlashDanger, "Login unsuccessful. Check email and password.")
		}
	}
	h.render(w, r, http.StatusOK, "login", &view.Data{Title: "Log in", Form: form, Next: next})
}

// Logout clears the session unconditionally and redirects to the login
// page. Safe to call when already logged out.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), middleware.SessionID(r.Context())); err != nil {
		slog.Error("logout", "error", err)
	}
	h.flash(r, models.FlashInfo, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// sanitizeNext keeps post-login redirects on this site.
func sanitizeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return ""
}
