// Package leads provides the lead lifecycle bounded context module.
// This file wires the repository, scoring engine, allocator, task guard,
// and service together from their shared dependencies.
package leads

import (
	"github.com/redis/go-redis/v9"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/assignment"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/scoring"
	"leadflow_backend/internal/leads/service"
	"leadflow_backend/internal/leads/tasks"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"
)

// Module is the leads bounded context: capture, scoring, assignment, status
// transitions, follow-up tasks, and the recency feed.
type Module struct {
	repo      *repository.Repository
	service   *service.Service
	tasks     *tasks.Service
	allocator *assignment.Allocator
}

// NewModule creates and initializes the leads module with all its
// dependencies.
func NewModule(pool db.Pool, rdb redis.UniversalClient, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool, repository.Config{
		WorkloadCeiling:     cfg.GetWorkloadCeiling(),
		TaskStalenessWindow: cfg.GetTaskStalenessWindow(),
		DuplicateWindow:     cfg.GetDuplicateWindow(),
	})

	engine := scoring.NewEngine(repo, log)
	allocator := assignment.New(repo, log)
	taskSvc := tasks.New(repo, val, log)
	cache := service.NewCache(rdb, cfg.GetCaptureCacheTTL(), log)

	svc := service.New(repo, engine, allocator, taskSvc, cache, eventBus, val, log)

	return &Module{
		repo:      repo,
		service:   svc,
		tasks:     taskSvc,
		allocator: allocator,
	}
}

// Service exposes the lead lifecycle operations.
func (m *Module) Service() *service.Service { return m.service }

// Tasks exposes the follow-up task guard.
func (m *Module) Tasks() *tasks.Service { return m.tasks }

// Repository exposes the underlying store for sibling modules that need
// read access.
func (m *Module) Repository() *repository.Repository { return m.repo }
