package models

import "time"

// Priority levels accepted by the task form.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Category is a row in the categories reference table. Categories are
// seeded at migration time and only ever read afterwards.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task represents a row in the tasks table. UserID is set at creation
// and never mutated. CategoryName is filled by list queries that join
// the categories table; it is never written back.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	Priority     string     `json:"priority"`
	IsCompleted  bool       `json:"is_completed"`
	UserID       string     `json:"user_id"`
	CategoryID   *string    `json:"category_id"`
	CategoryName string     `json:"category_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
