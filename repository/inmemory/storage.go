package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"

	"github.com/google/uuid"
)

// Storage is a map-backed store used as the development fallback when no
// database is reachable, and as the test double in handler tests. Handlers
// run concurrently, so every method takes the lock.
type Storage struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]models.Task
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[string]models.User),
		tasks: make(map[string]models.Task),
	}
}

func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return errors.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) UpdateUser(_ context.Context, id string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return errors.ErrUserNotFound
	}
	user.ID = id
	s.users[id] = *user
	return nil
}

func (s *Storage) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	stored := *task
	stored.Owner = nil
	s.tasks[stored.ID] = stored
	return nil
}

func (s *Storage) GetTaskByID(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, errors.ErrNotFound
	}
	s.populateOwner(&task)
	return &task, nil
}

func (s *Storage) ListTasks(_ context.Context, query models.TaskQuery) ([]models.Task, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Task, 0)
	for _, task := range s.tasks {
		if query.OwnerID != "" && task.UserID != query.OwnerID {
			continue
		}
		if query.Status != "" && task.Status != query.Status {
			continue
		}
		if query.Priority != "" && task.Priority != query.Priority {
			continue
		}
		matched = append(matched, task)
	}

	sortTasks(matched, query.Sort)

	total := len(matched)
	offset := query.Offset()
	if offset >= total {
		return []models.Task{}, total, nil
	}
	end := offset + query.Limit
	if end > total {
		end = total
	}

	page := make([]models.Task, end-offset)
	copy(page, matched[offset:end])
	for i := range page {
		s.populateOwner(&page[i])
	}
	return page, total, nil
}

func (s *Storage) UpdateTask(_ context.Context, id string, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.tasks[id]
	if !exists {
		return errors.ErrNotFound
	}
	updated := *task
	updated.ID = id
	updated.UserID = existing.UserID
	updated.Owner = nil
	s.tasks[id] = updated
	return nil
}

func (s *Storage) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return errors.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Storage) CountTasksByStatus(_ context.Context, ownerID string) (models.TaskStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.TaskStats{}
	for _, task := range s.tasks {
		if ownerID != "" && task.UserID != ownerID {
			continue
		}
		switch task.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		}
		stats.Total++
	}
	return stats, nil
}

func (s *Storage) populateOwner(task *models.Task) {
	if user, exists := s.users[task.UserID]; exists {
		task.Owner = &models.Owner{ID: user.ID, Name: user.Name, Email: user.Email}
	}
}

// sortTasks applies the parsed sort spec, later fields breaking ties among
// earlier ones.
func sortTasks(tasks []models.Task, fields []models.SortField) {
	if len(fields) == 0 {
		fields = []models.SortField{{Field: "createdAt", Descending: true}}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		for _, field := range fields {
			cmp := compareTasks(&tasks[i], &tasks[j], field.Field)
			if cmp == 0 {
				continue
			}
			if field.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareTasks(a, b *models.Task, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "status":
		return strings.Compare(a.Status, b.Status)
	case "priority":
		return strings.Compare(a.Priority, b.Priority)
	case "dueDate":
		return compareTimes(timeOrZero(a.DueDate), timeOrZero(b.DueDate))
	default:
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
