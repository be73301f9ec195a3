package services

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"task-market/backend/internal/cache"
	"task-market/backend/internal/models"
)

// CachedTaskService decorates TaskService with a redis catalog cache. Only
// anonymous public-catalog listings are cached: owner and admin views depend
// on moderation state and always hit the store. Every mutation invalidates
// the whole listing cache.
type CachedTaskService struct {
	TaskService
	cache *cache.CatalogCache
	log   *logrus.Logger
}

func NewCachedTaskService(inner TaskService, catalogCache *cache.CatalogCache, log *logrus.Logger) *CachedTaskService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedTaskService{TaskService: inner, cache: catalogCache, log: log}
}

type cachedListing struct {
	Tasks []models.Task `json:"tasks"`
	Total int64         `json:"total"`
}

func (s *CachedTaskService) ListTasks(ctx context.Context, db *gorm.DB, viewer Viewer, filters TaskListFilters) ([]models.Task, int64, error) {
	if viewer.Authenticated || s.cache == nil {
		return s.TaskService.ListTasks(ctx, db, viewer, filters)
	}

	key, err := cache.ListingKey(filters)
	if err == nil {
		var cached cachedListing
		if s.cache.Get(ctx, key, &cached) == nil {
			return cached.Tasks, cached.Total, nil
		}
	}

	tasks, total, err := s.TaskService.ListTasks(ctx, db, viewer, filters)
	if err != nil {
		return nil, 0, err
	}

	if key, keyErr := cache.ListingKey(filters); keyErr == nil {
		if setErr := s.cache.Set(ctx, key, cachedListing{Tasks: tasks, Total: total}); setErr != nil {
			s.log.WithError(setErr).Debug("catalog cache set failed")
		}
	}
	return tasks, total, nil
}

func (s *CachedTaskService) CreateTask(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, input CreateTaskInput) (*models.Task, error) {
	task, err := s.TaskService.CreateTask(ctx, db, ownerID, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return task, nil
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID, patch TaskPatch) (*models.Task, error) {
	task, err := s.TaskService.UpdateTask(ctx, db, taskID, actorID, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID, isAdmin bool) error {
	if err := s.TaskService.DeleteTask(ctx, db, taskID, actorID, isAdmin); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedTaskService) ModerateTask(ctx context.Context, db *gorm.DB, taskID, adminID uuid.UUID, action ModerationAction, comment *string) (*models.Task, error) {
	task, err := s.TaskService.ModerateTask(ctx, db, taskID, adminID, action, comment)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return task, nil
}

func (s *CachedTaskService) CloseTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.TaskService.CloseTask(ctx, db, taskID, actorID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return task, nil
}

func (s *CachedTaskService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("catalog cache invalidation failed")
	}
}
