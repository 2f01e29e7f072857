package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsokolov/taskward/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// Must return apperrors.ErrUserAlreadyExists if the email is taken
	CreateUser(ctx context.Context, email string, name string, hashedPassword string) (models.User, error)

	// Get user by id or email
	// Must return apperrors.ErrUserNotFound if no such user exists
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Refresh token repository interface
// The token string itself is the primary key
type RefreshTokenRepo interface {
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the record whether it is expired or not
	// Must return apperrors.ErrRefreshTokenNotFound if no record exists
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Delete record by token string
	// Idempotent: deleting an absent token is not an error
	Delete(ctx context.Context, tokenString string) error
}

type TaskFilter struct {
	// Empty status or search means "don't filter on it"
	Status string
	Search string
	Limit  int
	Offset int
}

// Task repository interface
// Every operation is scoped to the owning user
type TaskRepo interface {
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)

	// Must return apperrors.ErrTaskNotFound if the task doesn't exist
	// or belongs to another user
	GetTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) (models.Task, error)

	// List user tasks ordered by created_at DESC and the total count
	// matching the filter (ignoring limit/offset)
	ListTasks(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]models.Task, int64, error)

	// Update task fields; nil pointer means "leave unchanged"
	UpdateTask(ctx context.Context, id uuid.UUID, userID uuid.UUID, title *string, description *string, status *string) (models.Task, error)

	DeleteTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

// Storage bundles all repositories over a single database handle
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Task() TaskRepo

	// Run fn within a database transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
