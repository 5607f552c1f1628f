// Package tasks implements the task CRUD handlers: dashboard listing,
// create, update, delete and completion toggling.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nkoval/tasktrack/internal/forms"
	"github.com/nkoval/tasktrack/internal/middleware"
	"github.com/nkoval/tasktrack/internal/models"
	"github.com/nkoval/tasktrack/internal/store"
	"github.com/nkoval/tasktrack/internal/view"
)

const serverErrMsg = "Something went wrong. Please try again."

// TaskStore defines the persistence surface for tasks and their
// category reference data.
type TaskStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateTask(ctx context.Context, t *models.Task) error
	ListTasksByOwner(ctx context.Context, userID string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	ToggleTask(ctx context.Context, id string) error
}

// Sessions is the flash surface the task handlers need.
type Sessions interface {
	AddFlash(ctx context.Context, sid string, f models.Flash) error
	TakeFlashes(ctx context.Context, sid string) ([]models.Flash, error)
}

// Handler holds the task HTTP handlers. All routes here sit behind the
// RequireAuth middleware, so the principal is always present.
type Handler struct {
	store    TaskStore
	sessions Sessions
	view     *view.Renderer
}

func NewHandler(store TaskStore, sessions Sessions, v *view.Renderer) *Handler {
	return &Handler{store: store, sessions: sessions, view: v}
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

// Dashboard lists the current user's tasks ordered by due date.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	tasks, err := h.store.ListTasksByOwner(r.Context(), user.ID)
	if err != nil {
		slog.Error("list tasks", "user_id", user.ID, "error", err)
		http.Error(w, serverErrMsg, http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", &view.Data{Title: "Dashboard", Tasks: tasks})
}

// NewTask handles GET and POST /task/new.
func (h *Handler) NewTask(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		slog.Error("list categories", "error", err)
		http.Error(w, serverErrMsg, http.StatusInternalServerError)
		return
	}

	form := forms.NewTaskForm(categories)
	if r.Method == http.MethodPost {
		form.Bind(r)
		if form.Validate() {
			user := middleware.UserFrom(r.Context())
			due := form.DueAt
			task := &models.Task{
				Title:       form.Title,
				Description: form.Description,
				DueDate:     &due,
				Priority:    form.Priority,
				UserID:      user.ID,
				CategoryID:  form.CategoryID,
			}
			if err := h.store.CreateTask(r.Context(), task); err != nil {
				slog.Error("create task", "user_id", user.ID, "error", err)
				http.Error(w, serverErrMsg, http.StatusInternalServerError)
				return
			}
			h.flash(r, models.FlashSuccess, "Task added successfully!")
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	}
	h.render(w, r, http.StatusOK, "task_form", &view.Data{Title: "Add task", Legend: "Add Task", Form: form})
}

// UpdateTask handles GET and POST /task/{id}/update. GET pre-fills the
// form from the stored task; POST overwrites the mutable fields.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task := h.loadOwnedTask(w, r)
	if task == nil {
		return
	}

	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		slog.Error("list categories", "error", err)
		http.Error(w, serverErrMsg, http.StatusInternalServerError)
		return
	}

	form := forms.NewTaskForm(categories)
	if r.Method == http.MethodPost {
		form.Bind(r)
		if form.Validate() {
			due := form.DueAt
			task.Title = form.Title
			task.Description = form.Description
			task.DueDate = &due
			task.Priority = form.Priority
			task.CategoryID = form.CategoryID
			if err := h.store.UpdateTask(r.Context(), task); err != nil {
				slog.Error("update task", "task_id", task.ID, "error", err)
				http.Error(w, serverErrMsg, http.StatusInternalServerError)
				return
			}
			h.flash(r, models.FlashSuccess, "Task updated!")
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
	} else {
		form.FromTask(task)
	}
	h.render(w, r, http.StatusOK, "task_form", &view.Data{Title: "Update task", Legend: "Update Task", Form: form})
}

// DeleteTask handles POST /task/{id}/delete.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task := h.loadOwnedTask(w, r)
	if task == nil {
		return
	}
	if err := h.store.DeleteTask(r.Context(), task.ID); err != nil {
		slog.Error("delete task", "task_id", task.ID, "error", err)
		http.Error(w, serverErrMsg, http.StatusInternalServerError)
		return
	}
	h.flash(r, models.FlashInfo, "Task deleted!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ToggleTask handles GET /task/{id}/toggle and flips the completion
// flag.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	task := h.loadOwnedTask(w, r)
	if task == nil {
		return
	}
	if err := h.store.ToggleTask(r.Context(), task.ID); err != nil {
		slog.Error("toggle task", "task_id", task.ID, "error", err)
		http.Error(w, serverErrMsg, http.StatusInternalServerError)
		return
	}
	h.flash(r, models.FlashSuccess, "Task status updated.")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// loadOwnedTask resolves the {id} route parameter to a task owned by
// the current user. On failure it writes the error response (404 for
// missing or malformed ids, 403 when the task belongs to someone else)
// and returns nil.
func (h *Handler) loadOwnedTask(w http.ResponseWriter, r *http.Request) *models.Task {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		http.NotFound(w, r)
		return nil
	}

	task, err := h.store.GetTask(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		slog.Error("load task", "task_id", id, "error", err)
		http.Error(w, serverErrMsg, http.StatusInternalServerError)
		return nil
	}

	if task.UserID != middleware.UserFrom(r.Context()).ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil
	}
	return task
}
