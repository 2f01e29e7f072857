package task

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vsokolov/taskward/internal/models"
	"github.com/vsokolov/taskward/internal/repository"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type ListParams struct {
	Page   int
	Limit  int
	Status string
	Search string
}

type Pagination struct {
	Page       int
	Limit      int
	Total      int64
	TotalPages int64
}

type Page struct {
	Tasks      []models.Task
	Pagination Pagination
}

// Fields to change on update; nil means "leave unchanged"
type UpdateParams struct {
	Title       *string
	Description *string
	Status      *string
}

type TaskService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) (*TaskService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	return &TaskService{storage: storage}, nil
}

// List returns one page of user tasks, newest first, optionally narrowed
// by status and a case-insensitive substring search over title and
// description
func (s *TaskService) List(ctx context.Context, userID uuid.UUID, params ListParams) (Page, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = defaultPageLimit
	}
	if params.Limit > maxPageLimit {
		params.Limit = maxPageLimit
	}

	tasks, total, err := s.storage.Task().ListTasks(ctx, userID, repository.TaskFilter{
		Status: params.Status,
		Search: params.Search,
		Limit:  params.Limit,
		Offset: (params.Page - 1) * params.Limit,
	})
	if err != nil {
		return Page{}, err
	}

	totalPages := total / int64(params.Limit)
	if total%int64(params.Limit) != 0 {
		totalPages++
	}

	return Page{
		Tasks: tasks,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *TaskService) Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (models.Task, error) {
	return s.storage.Task().GetTask(ctx, id, userID)
}

func (s *TaskService) Create(ctx context.Context, userID uuid.UUID, title string, description string, status string) (models.Task, error) {
	if status == "" {
		status = models.TaskStatusPending
	}

	return s.storage.Task().CreateTask(ctx, models.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      status,
	})
}

func (s *TaskService) Update(ctx context.Context, userID uuid.UUID, id uuid.UUID, params UpdateParams) (models.Task, error) {
	return s.storage.Task().UpdateTask(ctx, id, userID, params.Title, params.Description, params.Status)
}

func (s *TaskService) Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	return s.storage.Task().DeleteTask(ctx, id, userID)
}

// Toggle flips the task between completed and pending
// Any not yet completed status toggles to completed
func (s *TaskService) Toggle(ctx context.Context, userID uuid.UUID, id uuid.UUID) (models.Task, error) {
	task, err := s.storage.Task().GetTask(ctx, id, userID)
	if err != nil {
		return task, err
	}

	status := models.TaskStatusCompleted
	if task.Status == models.TaskStatusCompleted {
		status = models.TaskStatusPending
	}

	return s.storage.Task().UpdateTask(ctx, id, userID, nil, nil, &status)
}
