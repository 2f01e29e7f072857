package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vsokolov/taskward/internal/apperrors"
	"github.com/vsokolov/taskward/internal/models"
	"github.com/vsokolov/taskward/internal/repository"
)

type TaskRepo struct {
	DB DBTX
}

const createTask = `-- name: CreateTask
INSERT INTO tasks (id, user_id, title, description, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, title, description, status, created_at, updated_at
`

func (r *TaskRepo) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	id := task.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createTask, id, task.UserID, task.Title, task.Description, task.Status)
	created, err := pgx.CollectOneRow(rows, rowToTask)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getTask = `-- name: GetTask
SELECT id, user_id, title, description, status, created_at, updated_at
FROM tasks
WHERE id = $1 AND user_id = $2
`

func (r *TaskRepo) GetTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, getTask, id, userID)
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		return task, apperrors.ErrTaskNotFound
	default:
		return task, fmt.Errorf("db error: %w", err)
	}
}

const listTasks = `-- name: ListTasks
SELECT id, user_id, title, description, status, created_at, updated_at
FROM tasks
WHERE user_id = $1
  AND ($2 = '' OR status = $2)
  AND ($3 = '' OR title ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

const countTasks = `-- name: CountTasks
SELECT count(*)
FROM tasks
WHERE user_id = $1
  AND ($2 = '' OR status = $2)
  AND ($3 = '' OR title ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
`

func (r *TaskRepo) ListTasks(ctx context.Context, userID uuid.UUID, filter repository.TaskFilter) ([]models.Task, int64, error) {
	rows, _ := r.DB.Query(ctx, listTasks, userID, filter.Status, filter.Search, filter.Limit, filter.Offset)
	tasks, err := pgx.CollectRows(rows, rowToTask)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	rows, _ = r.DB.Query(ctx, countTasks, userID, filter.Status, filter.Search)
	total, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return tasks, total, nil
}

const updateTask = `-- name: UpdateTask
UPDATE tasks
SET title       = COALESCE($3, title),
    description = COALESCE($4, description),
    status      = COALESCE($5, status),
    updated_at  = now()
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, title, description, status, created_at, updated_at
`

// Update task fields; nil pointer leaves the column as is
func (r *TaskRepo) UpdateTask(ctx context.Context, id uuid.UUID, userID uuid.UUID, title *string, description *string, status *string) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, updateTask, id, userID, title, description, status)
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		return task, apperrors.ErrTaskNotFound
	default:
		return task, fmt.Errorf("db error: %w", err)
	}
}

const deleteTask = `-- name: DeleteTask
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`

func (r *TaskRepo) DeleteTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteTask, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

func rowToTask(row pgx.CollectableRow) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
