package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkoval/tasktrack/internal/models"
)

// uniqueViolationCode is the PostgreSQL error code for unique
// constraint violations.
const uniqueViolationCode = "23505"

// PostgresStore handles user, category and task CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they don't exist and seeds the
// category reference data.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{`
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(20)  UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`, `
		CREATE TABLE IF NOT EXISTS categories (
			id   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(30) UNIQUE NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS tasks (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title        VARCHAR(100) NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			due_date     TIMESTAMPTZ,
			priority     VARCHAR(10) NOT NULL DEFAULT 'Medium',
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			user_id      UUID NOT NULL REFERENCES users(id),
			category_id  UUID REFERENCES categories(id),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, `
		INSERT INTO categories (name)
		VALUES ('Work'), ('Personal'), ('Errands')
		ON CONFLICT (name) DO NOTHING`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at`,
		username, email, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create user: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get user by id: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// UsernameExists reports whether a user with the given username is
// already registered. Used by the registration form's uniqueness check.
func (s *PostgresStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("username exists: %w", err)
	}
	return exists, nil
}

// EmailExists reports whether a user with the given email is already
// registered.
func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("email exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateTask inserts the task and fills in the server-assigned id and
// creation timestamp.
func (s *PostgresStore) CreateTask(ctx context.Context, t *models.Task) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, due_date, priority, user_id, category_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, is_completed, created_at`,
		t.Title, t.Description, t.DueDate, t.Priority, t.UserID, t.CategoryID,
	).Scan(&t.ID, &t.IsCompleted, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListTasksByOwner returns the user's tasks ordered by due date
// ascending with null due dates last, creation time as tiebreaker.
func (s *PostgresStore) ListTasksByOwner(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.title, t.description, t.due_date, t.priority, t.is_completed,
		        t.user_id, t.category_id, COALESCE(c.name, ''), t.created_at
		 FROM tasks t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = $1
		 ORDER BY t.due_date ASC NULLS LAST, t.created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority,
			&t.IsCompleted, &t.UserID, &t.CategoryID, &t.CategoryName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, due_date, priority, is_completed,
		        user_id, category_id, created_at
		 FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority,
		&t.IsCompleted, &t.UserID, &t.CategoryID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get task: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// UpdateTask overwrites the mutable fields. Owner and id are never
// touched.
func (s *PostgresStore) UpdateTask(ctx context.Context, t *models.Task) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, due_date = $3, priority = $4, category_id = $5
		 WHERE id = $6`,
		t.Title, t.Description, t.DueDate, t.Priority, t.CategoryID, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update task: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task: %w", ErrNotFound)
	}
	return nil
}

// ToggleTask flips the completion flag in a single statement.
func (s *PostgresStore) ToggleTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET is_completed = NOT is_completed WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("toggle task: %w", ErrNotFound)
	}
	return nil
}
