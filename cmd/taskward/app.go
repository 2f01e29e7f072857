package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vsokolov/taskward/internal/db"
	"github.com/vsokolov/taskward/internal/handlers"
	"github.com/vsokolov/taskward/internal/handlers/middleware"
	"github.com/vsokolov/taskward/internal/logger"
	"github.com/vsokolov/taskward/internal/repository/postgres"
	"github.com/vsokolov/taskward/internal/service/auth"
	"github.com/vsokolov/taskward/internal/service/auth/tokenissuer"
	"github.com/vsokolov/taskward/internal/service/task"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log := logger.New(c.Environment, c.LogLevel)

	// Connect to the database and apply migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	// Signing secrets and lifetimes are fixed here once, services never
	// read the environment themselves
	issuer, err := tokenissuer.New(tokenissuer.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token issuer. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{Hasher: auth.BcryptHasher{Cost: c.BcryptCost}}, issuer, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	taskService, err := task.NewService(storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating task service. Err: %w", err)
	}

	mux := handlers.NewRouter(
		handlers.NewAuth(authService, log),
		handlers.NewTask(taskService, log),
		middleware.Auth(issuer, log),
		middleware.Logger(log),
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Logger:     log,
	}, nil
}

// Run starts the http server and closes it gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	s.Logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
