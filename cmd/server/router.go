package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nkoval/tasktrack/internal/auth"
	"github.com/nkoval/tasktrack/internal/middleware"
	"github.com/nkoval/tasktrack/internal/tasks"
)

// newRouter wires middleware and routes for the whole application.
func newRouter(authHandler *auth.Handler, taskHandler *tasks.Handler,
	sessions middleware.SessionReader, users middleware.UserLoader) http.Handler {

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Session(sessions, users))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes.
	r.HandleFunc("/register", authHandler.Register)
	r.HandleFunc("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.HandleFunc("/", taskHandler.Dashboard)
		r.HandleFunc("/dashboard", taskHandler.Dashboard)
		r.HandleFunc("/task/new", taskHandler.NewTask)
		r.HandleFunc("/task/{id}/update", taskHandler.UpdateTask)
		r.Post("/task/{id}/delete", taskHandler.DeleteTask)
		r.Get("/task/{id}/toggle", taskHandler.ToggleTask)
	})

	return r
}
