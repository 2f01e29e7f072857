package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vsokolov/taskward/internal/apperrors"
	"github.com/vsokolov/taskward/internal/handlers/render"
	"github.com/vsokolov/taskward/internal/handlers/userctx"
	"github.com/vsokolov/taskward/internal/logger"
	"github.com/vsokolov/taskward/internal/models"
	"github.com/vsokolov/taskward/internal/service/task"
)

type taskService interface {
	List(ctx context.Context, userID uuid.UUID, params task.ListParams) (task.Page, error)
	Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (models.Task, error)
	Create(ctx context.Context, userID uuid.UUID, title string, description string, status string) (models.Task, error)
	Update(ctx context.Context, userID uuid.UUID, id uuid.UUID, params task.UpdateParams) (models.Task, error)
	Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
	Toggle(ctx context.Context, userID uuid.UUID, id uuid.UUID) (models.Task, error)
}

type TaskHandler struct {
	taskService taskService
	logger      logger.Logger
}

type TaskResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func NewTask(taskService taskService, logger logger.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, logger: logger}
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	type ListResponse struct {
		Tasks      []TaskResponse     `json:"tasks"`
		Pagination PaginationResponse `json:"pagination"`
	}

	userID, ok := userctx.UserID(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := task.ListParams{
		Status: query.Get("status"),
		Search: query.Get("search"),
	}
	params.Page, _ = strconv.Atoi(query.Get("page"))
	params.Limit, _ = strconv.Atoi(query.Get("limit"))

	page, err := h.taskService.List(r.Context(), userID, params)
	if err != nil {
		h.logger.Error("list tasks failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	tasks := make([]TaskResponse, 0, len(page.Tasks))
	for _, t := range page.Tasks {
		tasks = append(tasks, taskResponse(t))
	}

	render.JSON(w, http.StatusOK, ListResponse{
		Tasks: tasks,
		Pagination: PaginationResponse{
			Page:       page.Pagination.Page,
			Limit:      page.Pagination.Limit,
			Total:      page.Pagination.Total,
			TotalPages: page.Pagination.TotalPages,
		},
	})
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.taskRequest(w, r)
	if !ok {
		return
	}

	t, err := h.taskService.Get(r.Context(), userID, id)
	if err != nil {
		h.taskError(w, err)
		return
	}

	render.JSON(w, http.StatusOK, taskResponse(t))
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
		Status      string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	}

	userID, ok := userctx.UserID(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	t, err := h.taskService.Create(r.Context(), userID, data.Title, data.Description, data.Status)
	if err != nil {
		h.logger.Error("create task failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, http.StatusCreated, taskResponse(t))
}

func (h *TaskHandler) update(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		Title       *string `json:"title" validate:"omitempty,min=1"`
		Description *string `json:"description"`
		Status      *string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	}

	userID, id, ok := h.taskRequest(w, r)
	if !ok {
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	t, err := h.taskService.Update(r.Context(), userID, id, task.UpdateParams{
		Title:       data.Title,
		Description: data.Description,
		Status:      data.Status,
	})
	if err != nil {
		h.taskError(w, err)
		return
	}

	render.JSON(w, http.StatusOK, taskResponse(t))
}

func (h *TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
	type DeleteResponse struct {
		Message string `json:"message"`
	}

	userID, id, ok := h.taskRequest(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), userID, id); err != nil {
		h.taskError(w, err)
		return
	}

	render.JSON(w, http.StatusOK, DeleteResponse{Message: "Task deleted successfully"})
}

func (h *TaskHandler) toggle(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.taskRequest(w, r)
	if !ok {
		return
	}

	t, err := h.taskService.Toggle(r.Context(), userID, id)
	if err != nil {
		h.taskError(w, err)
		return
	}

	render.JSON(w, http.StatusOK, taskResponse(t))
}

// taskRequest extracts the authenticated user and the task id path param
// An unparsable id behaves the same as a missing task
func (h *TaskHandler) taskRequest(w http.ResponseWriter, r *http.Request) (userID uuid.UUID, id uuid.UUID, ok bool) {
	userID, ok = userctx.UserID(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return userID, id, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Task not found", http.StatusNotFound)
		return userID, id, false
	}

	return userID, id, true
}

func (h *TaskHandler) taskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrTaskNotFound):
		render.ServiceError(w, "Task not found", http.StatusNotFound)
	default:
		h.logger.Error("task operation failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func taskResponse(t models.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
