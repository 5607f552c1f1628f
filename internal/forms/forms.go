// Package forms validates and coerces untrusted form input before it
// reaches the store. Each form mirrors one HTML view; validation runs
// field by field, stops at the first failing rule per field and
// collects every field's message for re-display.
package forms

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nkoval/tasktrack/internal/models"
)

// DueDateLayout is the textual pattern task due dates are submitted in.
const DueDateLayout = "2006-01-02 15:04"

var validate = validator.New()

// Errors maps field names to user-facing messages.
type Errors map[string]string

// UserDirectory is the read-only store view used by the registration
// form's uniqueness checks. Keeping it an explicit parameter keeps the
// database access visible at the validation call site.
type UserDirectory interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// RegistrationForm carries the /register fields.
type RegistrationForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Errors          Errors
}

func NewRegistrationForm(r *http.Request) *RegistrationForm {
	return &RegistrationForm{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		Errors:          Errors{},
	}
}

// Validate checks every field and records per-field messages. The
// returned error reports store failures, not validation failures.
func (f *RegistrationForm) Validate(ctx context.Context, users UserDirectory) (bool, error) {
	switch {
	case f.Username == "":
		f.Errors["username"] = "Username is required."
	case validate.Var(f.Username, "min=2,max=20") != nil:
		f.Errors["username"] = "Username must be between 2 and 20 characters."
	default:
		taken, err := users.UsernameExists(ctx, f.Username)
		if err != nil {
			return false, fmt.Errorf("check username: %w", err)
		}
		if taken {
			f.Errors["username"] = "That username is taken. Please choose another."
		}
	}

	switch {
	case f.Email == "":
		f.Errors["email"] = "Email is required."
	case validate.Var(f.Email, "email") != nil:
		f.Errors["email"] = "Enter a valid email address."
	default:
		registered, err := users.EmailExists(ctx, f.Email)
		if err != nil {
			return false, fmt.Errorf("check email: %w", err)
		}
		if registered {
			f.Errors["email"] = "That email is already registered."
		}
	}

	if f.Password == "" {
		f.Errors["password"] = "Password is required."
	}

	switch {
	case f.ConfirmPassword == "":
		f.Errors["confirm_password"] = "Please confirm your password."
	case f.ConfirmPassword != f.Password:
		f.Errors["confirm_password"] = "Passwords must match."
	}

	return len(f.Errors) == 0, nil
}

// LoginForm carries the /login fields.
type LoginForm struct {
	Email    string
	Password string
	Remember bool
	Errors   Errors
}

func NewLoginForm(r *http.Request) *LoginForm {
	return &LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Remember: r.PostFormValue("remember") != "",
		Errors:   Errors{},
	}
}

func (f *LoginForm) Validate() bool {
	switch {
	case f.Email == "":
		f.Errors["email"] = "Email is required."
	case validate.Var(f.Email, "email") != nil:
		f.Errors["email"] = "Enter a valid email address."
	}
	if f.Password == "" {
		f.Errors["password"] = "Password is required."
	}
	return len(f.Errors) == 0
}

// TaskForm carries the task create/update fields. Category choices are
// loaded from the store at construction time so the select reflects
// the current reference data.
type TaskForm struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
	Category    string

	Categories []models.Category
	Errors     Errors

	// Coerced values, set by Validate on success.
	DueAt      time.Time
	CategoryID *string
}

func NewTaskForm(categories []models.Category) *TaskForm {
	return &TaskForm{
		Priority:   models.PriorityMedium,
		Categories: categories,
		Errors:     Errors{},
	}
}

// Bind fills the form from a submitted request.
func (f *TaskForm) Bind(r *http.Request) {
	f.Title = strings.TrimSpace(r.PostFormValue("title"))
	f.Description = strings.TrimSpace(r.PostFormValue("description"))
	f.DueDate = strings.TrimSpace(r.PostFormValue("due_date"))
	f.Priority = r.PostFormValue("priority")
	f.Category = r.PostFormValue("category")
}

// FromTask pre-fills the form from an existing task for the update view.
func (f *TaskForm) FromTask(t *models.Task) {
	f.Title = t.Title
	f.Description = t.Description
	if t.DueDate != nil {
		f.DueDate = t.DueDate.Format(DueDateLayout)
	}
	f.Priority = t.Priority
	if t.CategoryID != nil {
		f.Category = *t.CategoryID
	}
}

func (f *TaskForm) Validate() bool {
	switch {
	case f.Title == "":
		f.Errors["title"] = "Title is required."
	case validate.Var(f.Title, "max=100") != nil:
		f.Errors["title"] = "Title must be at most 100 characters."
	}

	if f.DueDate == "" {
		f.Errors["due_date"] = "Due date is required."
	} else if due, err := time.Parse(DueDateLayout, f.DueDate); err != nil {
		f.Errors["due_date"] = "Enter the due date as YYYY-MM-DD HH:MM."
	} else {
		f.DueAt = due
	}

	if f.Priority == "" {
		f.Priority = models.PriorityMedium
	}
	if validate.Var(f.Priority, "oneof=Low Medium High") != nil {
		f.Errors["priority"] = "Choose a valid priority."
	}

	if f.Category != "" {
		found := false
		for _, c := range f.Categories {
			if c.ID == f.Category {
				found = true
				break
			}
		}
		if found {
			id := f.Category
			f.CategoryID = &id
		} else {
			f.Errors["category"] = "Choose a valid category."
		}
	}

	return len(f.Errors) == 0
}
