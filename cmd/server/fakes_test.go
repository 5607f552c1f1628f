package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkoval/tasktrack/internal/models"
	"github.com/nkoval/tasktrack/internal/store"
)

// fakeStore is an in-memory stand-in for the Postgres store, covering
// the interfaces the handlers and middleware consume.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	categories []models.Category
	tasks      map[string]*models.Task
	clock      time.Time
	getUserErr error

	// onCreateUser, when set, runs once before the next insert so
	// tests can interleave a concurrent registration.
	onCreateUser func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]*models.User{},
		tasks: map[string]*models.Task{},
		categories: []models.Category{
			{ID: uuid.NewString(), Name: "Errands"},
			{ID: uuid.NewString(), Name: "Personal"},
			{ID: uuid.NewString(), Name: "Work"},
		},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick hands out strictly increasing creation timestamps so ordering
// assertions are deterministic.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// failGetUserByID makes subsequent GetUserByID calls fail, simulating
// a database outage. Pass nil to restore normal behavior.
func (s *fakeStore) failGetUserByID(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getUserErr = err
}

func (s *fakeStore) CreateUser(_ context.Context, username, email, hashedPw string) (*models.User, error) {
	if hook := s.onCreateUser; hook != nil {
		s.onCreateUser = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return nil, fmt.Errorf("create user: %w", store.ErrDuplicate)
		}
	}
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  hashedPw,
		CreatedAt: s.tick(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", store.ErrNotFound)
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, fmt.Errorf("get user by id: %w", store.ErrNotFound)
}

func (s *fakeStore) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Category(nil), s.categories...), nil
}

func (s *fakeStore) categoryID(name string) string {
	for _, c := range s.categories {
		if c.Name == name {
			return c.ID
		}
	}
	return ""
}

func (s *fakeStore) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = s.tick()
	copied := *t
	s.tasks[t.ID] = &copied
	return nil
}

// ListTasksByOwner mirrors the SQL ordering: due date ascending with
// nulls last, creation time as tiebreaker.
func (s *fakeStore) ListTasksByOwner(_ context.Context, userID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []models.Task
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		copied := *t
		if copied.CategoryID != nil {
			for _, c := range s.categories {
				if c.ID == *copied.CategoryID {
					copied.CategoryName = c.Name
				}
			}
		}
		tasks = append(tasks, copied)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return tasks, nil
}

func (s *fakeStore) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, fmt.Errorf("get task: %w", store.ErrNotFound)
}

func (s *fakeStore) UpdateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[t.ID]
	if !ok {
		return fmt.Errorf("update task: %w", store.ErrNotFound)
	}
	existing.Title = t.Title
	existing.Description = t.Description
	existing.DueDate = t.DueDate
	existing.Priority = t.Priority
	existing.CategoryID = t.CategoryID
	return nil
}

func (s *fakeStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("delete task: %w", store.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeStore) ToggleTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("toggle task: %w", store.ErrNotFound)
	}
	t.IsCompleted = !t.IsCompleted
	return nil
}

// fakeSessions is an in-memory stand-in for the Redis session store.
type fakeSessions struct {
	mu        sync.Mutex
	bound     map[string]string
	flashes   map[string][]models.Flash
	userIDErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		bound:   map[string]string{},
		flashes: map[string][]models.Flash{},
	}
}

func (s *fakeSessions) Login(_ context.Context, sid, userID string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound[sid] = userID
	return nil
}

func (s *fakeSessions) Logout(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bound, sid)
	return nil
}

// failUserID makes subsequent UserID calls fail, simulating a session
// store outage. Pass nil to restore normal behavior.
func (s *fakeSessions) failUserID(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userIDErr = err
}

func (s *fakeSessions) UserID(_ context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userIDErr != nil {
		return "", s.userIDErr
	}
	return s.bound[sid], nil
}

func (s *fakeSessions) AddFlash(_ context.Context, sid string, f models.Flash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes[sid] = append(s.flashes[sid], f)
	return nil
}

func (s *fakeSessions) TakeFlashes(_ context.Context, sid string) ([]models.Flash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flashes := s.flashes[sid]
	delete(s.flashes, sid)
	return flashes, nil
}

func (s *fakeSessions) activeSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bound)
}
