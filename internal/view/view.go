// Package view renders the embedded HTML templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/nkoval/tasktrack/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Data is the payload handed to every template. Unused fields stay at
// their zero values.
type Data struct {
	Title   string
	User    *models.User
	Flashes []models.Flash
	Form    any
	Legend  string
	Tasks   []models.Task
	Next    string
}

// Renderer executes the parsed template set.
type Renderer struct {
	templates *template.Template
}

func New() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render writes the named page. The status is committed before the
// body, so execution errors mid-render can only be logged by the
// caller, not turned into an error response.
func (rd *Renderer) Render(w http.ResponseWriter, status int, page string, data *Data) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return rd.templates.ExecuteTemplate(w, page, data)
}
