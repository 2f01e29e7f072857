package handlers

import (
	"net/http"

	"github.com/vsokolov/taskward/internal/handlers/render"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authHandler *AuthHandler,
	taskHandler *TaskHandler,
	authMiddleware func(http.Handler) http.Handler,
	loggerMiddleware func(http.Handler) http.Handler,
) http.Handler {
	withAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	root := http.NewServeMux()

	root.Handle("/api/auth/", http.StripPrefix("/api/auth", authHandler.Handler()))

	root.Handle("GET /api/tasks", withAuth(taskHandler.list))
	root.Handle("POST /api/tasks", withAuth(taskHandler.create))
	root.Handle("GET /api/tasks/{id}", withAuth(taskHandler.get))
	root.Handle("PATCH /api/tasks/{id}", withAuth(taskHandler.update))
	root.Handle("DELETE /api/tasks/{id}", withAuth(taskHandler.delete))
	root.Handle("POST /api/tasks/{id}/toggle", withAuth(taskHandler.toggle))

	root.HandleFunc("GET /api/health", handleHealth)

	return chain(root, loggerMiddleware)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	type HealthResponse struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	render.JSON(w, http.StatusOK, HealthResponse{Status: "ok", Message: "Server is running"})
}
