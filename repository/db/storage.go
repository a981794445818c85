package db

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"time"

	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 15 * time.Second

const uniqueViolation = "23505"

// sortColumns maps the client-facing sort field names onto table columns.
// Only fields present here ever reach an ORDER BY clause.
var sortColumns = map[string]string{
	"title":     "t.title",
	"status":    "t.status",
	"priority":  "t.priority",
	"dueDate":   "t.due_date",
	"createdAt": "t.created_at",
}

type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(connStr string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Println("[ERROR] failed to configure database pool:", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		log.Println("[ERROR] failed to connect to database:", err)
		pool.Close()
		return nil, errors.ErrDatabaseConnection
	}

	log.Println("[SUCCESS] database connection established")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password, role, active, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Println("[ERROR] duplicate email on user creation:", user.Email)
			return errors.ErrUserAlreadyExists
		}
		log.Println("[ERROR] failed to create user:", err)
		return err
	}
	log.Println("[SUCCESS] user created:", user.ID)
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password, role, active, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password, role, active, created_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Storage) UpdateUser(ctx context.Context, id string, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $1, email = $2, password = $3, role = $4, active = $5 WHERE id = $6`,
		user.Name, user.Email, user.Password, user.Role, user.Active, id)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrUserAlreadyExists
		}
		log.Println("[ERROR] failed to update user:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	log.Println("[SUCCESS] user updated:", id)
	return nil
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, due_date, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.Title, task.Description, task.Status, task.Priority, task.DueDate, task.UserID, task.CreatedAt)
	if err != nil {
		log.Println("[ERROR] failed to create task:", err)
		return err
	}
	log.Println("[SUCCESS] task created:", task.ID)
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date, t.user_id, t.created_at,
		        u.name, u.email
		 FROM tasks t JOIN users u ON u.id = t.user_id
		 WHERE t.id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if err == errors.ErrNotFound {
			return nil, err
		}
		// A malformed uuid fails the id cast; the caller only needs to know
		// the resource does not resolve.
		if strings.Contains(err.Error(), "invalid input syntax") {
			return nil, errors.ErrNotFound
		}
		log.Println("[ERROR] failed to get task:", err)
		return nil, err
	}
	return task, nil
}

func (s *Storage) ListTasks(ctx context.Context, query models.TaskQuery) ([]models.Task, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := buildTaskFilter(query)

	countSQL := `SELECT COUNT(*) FROM tasks t` + where
	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		log.Println("[ERROR] failed to count tasks:", err)
		return nil, 0, err
	}

	listSQL := `SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date, t.user_id, t.created_at,
	                   u.name, u.email
	            FROM tasks t JOIN users u ON u.id = t.user_id` +
		where + orderByClause(query.Sort) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, query.Limit, query.Offset())

	rows, err := s.pool.Query(ctx, listSQL, args...)
	if err != nil {
		log.Println("[ERROR] failed to list tasks:", err)
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Println("[ERROR] failed to read task row:", err)
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *Storage) UpdateTask(ctx context.Context, id string, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// The owner column is deliberately absent: ownership never changes.
	ct, err := s.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, due_date = $5 WHERE id = $6`,
		task.Title, task.Description, task.Status, task.Priority, task.DueDate, id)
	if err != nil {
		log.Println("[ERROR] failed to update task:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	log.Println("[SUCCESS] task updated:", id)
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Println("[ERROR] failed to delete task:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	log.Println("[SUCCESS] task deleted:", id)
	return nil
}

func (s *Storage) CountTasksByStatus(ctx context.Context, ownerID string) (models.TaskStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sql := `SELECT status, COUNT(*) FROM tasks`
	args := []any{}
	if ownerID != "" {
		sql += ` WHERE user_id = $1`
		args = append(args, ownerID)
	}
	sql += ` GROUP BY status`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		log.Println("[ERROR] failed to aggregate task stats:", err)
		return models.TaskStats{}, err
	}
	defer rows.Close()

	stats := models.TaskStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return models.TaskStats{}, err
		}
		switch status {
		case models.StatusPending:
			stats.Pending = count
		case models.StatusInProgress:
			stats.InProgress = count
		case models.StatusCompleted:
			stats.Completed = count
		}
		stats.Total += count
	}
	return stats, rows.Err()
}

func buildTaskFilter(query models.TaskQuery) (string, []any) {
	conditions := []string{}
	args := []any{}
	if query.OwnerID != "" {
		args = append(args, query.OwnerID)
		conditions = append(conditions, fmt.Sprintf("t.user_id = $%d", len(args)))
	}
	if query.Status != "" {
		args = append(args, query.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if query.Priority != "" {
		args = append(args, query.Priority)
		conditions = append(conditions, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func orderByClause(fields []models.SortField) string {
	clauses := []string{}
	for _, field := range fields {
		column, ok := sortColumns[field.Field]
		if !ok {
			continue
		}
		direction := "ASC"
		if field.Descending {
			direction = "DESC"
		}
		clauses = append(clauses, column+" "+direction)
	}
	if len(clauses) == 0 {
		return " ORDER BY t.created_at DESC"
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		if strings.Contains(err.Error(), "invalid input syntax") {
			return nil, errors.ErrUserNotFound
		}
		log.Println("[ERROR] failed to read user row:", err)
		return nil, err
	}
	return user, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	owner := &models.Owner{}
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&task.DueDate, &task.UserID, &task.CreatedAt, &owner.Name, &owner.Email); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	owner.ID = task.UserID
	task.Owner = owner
	return task, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
