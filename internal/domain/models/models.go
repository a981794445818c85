package models

import (
	"encoding/json"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type User struct {
	ID        string    `json:"id" validate:"omitempty,uuid"`
	Name      string    `json:"name" validate:"required,min=2,max=50"`
	Email     string    `json:"email" validate:"required,email"`
	Password  string    `json:"-" validate:"required,min=6,max=100"`
	Role      string    `json:"role" validate:"omitempty,oneof=user admin"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Owner is the embedded task owner identity, never carrying the password hash.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Task struct {
	ID          string     `json:"id" validate:"omitempty,uuid"`
	Title       string     `json:"title" validate:"required,min=1,max=100"`
	Description string     `json:"description" validate:"required,max=500"`
	Status      string     `json:"status" validate:"required,oneof=pending in-progress completed"`
	Priority    string     `json:"priority" validate:"required,oneof=low medium high"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	UserID      string     `json:"userId"`
	Owner       *Owner     `json:"user,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=50"`
	Email string `json:"email" validate:"omitempty,email"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=100"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=100"`
	Description string     `json:"description" validate:"required,max=500"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTaskRequest is a patch: nil pointers leave the field unchanged.
// DueDate distinguishes "absent" from an explicit null, which clears the date.
type UpdateTaskRequest struct {
	Title       *string      `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string      `json:"description" validate:"omitempty,max=500"`
	Status      *string      `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    *string      `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     OptionalTime `json:"dueDate" validate:"-"`
}

// OptionalTime tracks JSON field presence. Set is false when the key was
// absent; Set true with a nil Value means the client sent an explicit null.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// SortField is one element of a parsed sort specification.
type SortField struct {
	Field      string
	Descending bool
}

// TaskQuery scopes a task listing. An empty OwnerID means no ownership
// restriction (admin view). Page and Limit are 1-based and already clamped.
type TaskQuery struct {
	OwnerID  string
	Status   string
	Priority string
	Sort     []SortField
	Page     int
	Limit    int
}

func (q TaskQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in-progress"`
	Completed  int `json:"completed"`
}
