package server

import (
	"context"

	"doc-tracker/internal/auth"
	"doc-tracker/internal/blob"
	"doc-tracker/internal/config"
	"doc-tracker/internal/document"
	"doc-tracker/internal/middleware"
	"doc-tracker/internal/recognition"
	"doc-tracker/internal/user"
	"doc-tracker/internal/validation"
	"doc-tracker/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ocrQueueSize = 1000

// App is the assembled HTTP service.
type App struct {
	Router   *gin.Engine
	backends *Backends
	pool     *worker.WorkerPool
}

// New wires every component on top of an open, migrated database and seeds
// the default admin on first start.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, db *gorm.DB) (*App, error) {
	if err := validation.Register(); err != nil {
		return nil, errors.Wrap(err, "registering validators")
	}

	backends := NewBackends(ctx, cfg, log)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)

	userService := user.NewService(user.NewRepository(db), log)
	if _, err := userService.SeedDefaultAdmin(ctx, cfg.DefaultAdminPassword); err != nil {
		backends.Close()
		return nil, errors.Wrap(err, "seeding default admin")
	}

	var recognizer document.Recognizer
	if cfg.OCRAddress != "" || cfg.SummaryAddress != "" {
		recognizer = recognition.NewClient(cfg.OCRAddress, cfg.SummaryAddress)
	}

	pool := worker.NewWorkerPool(cfg.WorkerCount, ocrQueueSize, log)

	docService := document.NewService(
		document.NewRepository(db),
		blob.NewGormStore(db),
		backends.Cache,
		recognizer,
		pool,
		document.Folders{Documents: cfg.DocumentFolder, Deleted: cfg.DeletedFolder},
		log,
	)

	router := NewRouter(cfg, log, Handlers{
		Auth:     &middleware.Auth{Tokens: tokens, Sessions: backends.Sessions},
		User:     user.NewHandler(userService, backends.Sessions, tokens, log),
		Document: document.NewHandler(docService),
	})

	return &App{Router: router, backends: backends, pool: pool}, nil
}

// Close drains queued OCR jobs and disconnects the backends.
func (a *App) Close() {
	a.pool.Shutdown()
	a.backends.Close()
}
