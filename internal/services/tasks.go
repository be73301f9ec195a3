package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"task-market/backend/internal/models"
	"task-market/backend/internal/notify"
	"task-market/backend/internal/storage"
)

type CreateTaskInput struct {
	MarketplaceTargets []string
	CategoryID         uuid.UUID
	Title              string
	Description        string
	BudgetAmount       *int64
	BudgetType         models.BudgetType
	Images             []string
	TagIDs             []uuid.UUID
	CreatedInMode      string
}

type TaskService interface {
	CreateTask(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, input CreateTaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID, patch TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID, isAdmin bool) error
	ModerateTask(ctx context.Context, db *gorm.DB, taskID, adminID uuid.UUID, action ModerationAction, comment *string) (*models.Task, error)
	CloseTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID) (*models.Task, error)
	GetTask(ctx context.Context, db *gorm.DB, taskID uuid.UUID, viewer Viewer) (*models.Task, error)
	ListTasks(ctx context.Context, db *gorm.DB, viewer Viewer, filters TaskListFilters) ([]models.Task, int64, error)
	ListPendingTasks(ctx context.Context, db *gorm.DB, page, limit int) ([]models.Task, int64, error)
	CountPendingTasks(ctx context.Context, db *gorm.DB) (int64, error)
}

type TaskServiceImpl struct {
	notifier notify.Notifier
	files    storage.FileStorage
	log      *logrus.Logger
}

func NewTaskService(notifier notify.Notifier, files storage.FileStorage, log *logrus.Logger) *TaskServiceImpl {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TaskServiceImpl{notifier: notifier, files: files, log: log}
}

const editReason = "edited by owner"

func (s *TaskServiceImpl) CreateTask(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, input CreateTaskInput) (*models.Task, error) {
	if len(input.MarketplaceTargets) == 0 {
		return nil, invalidInput("at least one marketplace target is required")
	}
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}
	if err := validateBudget(input.BudgetAmount); err != nil {
		return nil, err
	}
	if err := validateImages(input.Images); err != nil {
		return nil, err
	}
	if err := categoryExists(db, input.CategoryID); err != nil {
		return nil, err
	}
	if err := tagsBelongToCategory(db, input.TagIDs, input.CategoryID); err != nil {
		return nil, err
	}

	mode := input.CreatedInMode
	if mode == "" {
		mode = models.ModeRequester
	}
	budgetType := input.BudgetType
	if budgetType == "" {
		budgetType = models.BudgetNegotiable
	}

	pending := models.ModerationPending
	task := &models.Task{
		ID:                 uuid.Must(uuid.NewV4()),
		OwnerID:            ownerID,
		MarketplaceTargets: input.MarketplaceTargets,
		CategoryID:         input.CategoryID,
		Title:              strings.TrimSpace(input.Title),
		Description:        strings.TrimSpace(input.Description),
		BudgetAmount:       input.BudgetAmount,
		BudgetType:         budgetType,
		Images:             input.Images,
		Status:             models.TaskOpen,
		ModerationStatus:   &pending,
		CreatedInMode:      mode,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "History", "Responses").Create(task).Error; err != nil {
			return err
		}
		return replaceTagAssociations(tx, task.ID, input.TagIDs)
	})
	if err != nil {
		return nil, err
	}

	s.runPostCommitHooks(ctx, []postCommitHook{
		{"owner submitted notification", func(ctx context.Context) error {
			return s.notifier.Notify(ctx, notify.Notification{
				RecipientID: ownerID,
				Role:        mode,
				Type:        notify.TypeTaskSubmitted,
				Title:       "Task submitted",
				Message:     fmt.Sprintf("Your task %q was submitted and is pending moderation.", task.Title),
				Link:        taskLink(task.ID),
			})
		}},
	})

	return s.reload(ctx, db, task.ID)
}

// UpdateTask is the edit orchestrator: it validates the patch, diffs it
// against the stored record, and applies tag replacement, field mutation,
// the forced moderation reset and the history append as one transaction.
// File cleanup and notifications run after commit and never roll it back.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID, patch TaskPatch) (*models.Task, error) {
	task, err := s.load(ctx, db, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != actorID {
		return nil, fmt.Errorf("only the owner may edit a task: %w", ErrForbidden)
	}

	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.BudgetAmount.Set {
		if err := validateBudget(patch.BudgetAmount.Value); err != nil {
			return nil, err
		}
	}
	if patch.Images != nil {
		if err := validateImages(*patch.Images); err != nil {
			return nil, err
		}
	}
	if patch.MarketplaceTargets != nil && len(*patch.MarketplaceTargets) == 0 {
		return nil, invalidInput("at least one marketplace target is required")
	}

	categoryID := task.CategoryID
	if patch.CategoryID != nil {
		if err := categoryExists(db, *patch.CategoryID); err != nil {
			return nil, err
		}
		categoryID = *patch.CategoryID
	}
	if patch.TagIDs != nil {
		if err := tagsBelongToCategory(db, *patch.TagIDs, categoryID); err != nil {
			return nil, err
		}
	}

	diff := ComputeTaskDiff(task, patch)

	var removedImages []string
	if patch.Images != nil && diff.Changed("images") {
		removedImages = RemovedImages(task.Images, *patch.Images)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if patch.TagIDs != nil {
			if err := replaceTagAssociations(tx, task.ID, *patch.TagIDs); err != nil {
				return err
			}
		}

		// Any successful edit re-enters the moderation queue, even when
		// only moderation-irrelevant fields changed.
		updates := map[string]interface{}{
			"moderation_status":  models.ModerationPending,
			"moderation_comment": nil,
			"moderated_at":       nil,
			"moderated_by":       nil,
		}
		if patch.Title != nil {
			updates["title"] = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			updates["description"] = strings.TrimSpace(*patch.Description)
		}
		if patch.BudgetAmount.Set {
			updates["budget_amount"] = patch.BudgetAmount.Value
		}
		if patch.BudgetType != nil {
			updates["budget_type"] = *patch.BudgetType
		}
		if patch.CategoryID != nil {
			updates["category_id"] = *patch.CategoryID
		}
		if patch.MarketplaceTargets != nil {
			updates["marketplace_targets"] = models.StringList(*patch.MarketplaceTargets)
		}
		if patch.Images != nil {
			updates["images"] = models.StringList(*patch.Images)
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			return err
		}

		if diff.Empty() {
			return nil
		}
		entry := models.TaskHistoryEntry{
			ID:               uuid.Must(uuid.NewV4()),
			TaskID:           task.ID,
			PreviousSnapshot: diff.PreviousData,
			NewSnapshot:      diff.NewData,
			ChangedFields:    diff.ChangedFields,
			ChangedBy:        actorID,
			Reason:           editReason,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	hooks := []postCommitHook{}
	if len(removedImages) > 0 {
		urls := removedImages
		hooks = append(hooks, postCommitHook{"image cleanup", func(ctx context.Context) error {
			return s.files.DeleteFiles(ctx, urls)
		}})
	}
	hooks = append(hooks, postCommitHook{"owner resubmitted notification", func(ctx context.Context) error {
		return s.notifier.Notify(ctx, notify.Notification{
			RecipientID: task.OwnerID,
			Role:        task.CreatedInMode,
			Type:        notify.TypeTaskResubmitted,
			Title:       "Task pending moderation",
			Message:     fmt.Sprintf("Your changes to %q were saved; the task is pending moderation again.", task.Title),
			Link:        taskLink(task.ID),
		})
	}})
	if !diff.Empty() {
		changed := strings.Join(diff.ChangedFields, ", ")
		hooks = append(hooks, postCommitHook{"admin review fan-out", func(ctx context.Context) error {
			admins, err := adminIDs(db.WithContext(ctx))
			if err != nil {
				return err
			}
			notify.FanOut(ctx, s.notifier, s.log, notify.Notification{
				Role:    models.RoleAdmin,
				Type:    notify.TypeAdminReviewNeeded,
				Title:   "Edited task needs review",
				Message: fmt.Sprintf("Task %q was edited by its owner (changed: %s).", task.Title, changed),
				Link:    taskLink(task.ID),
			}, admins)
			return nil
		}})
	}
	s.runPostCommitHooks(ctx, hooks)

	return s.reload(ctx, db, task.ID)
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID, isAdmin bool) error {
	task, err := s.load(ctx, db, taskID)
	if err != nil {
		return err
	}
	if task.OwnerID != actorID && !isAdmin {
		return fmt.Errorf("only the owner or an admin may delete a task: %w", ErrForbidden)
	}

	if len(task.Images) > 0 {
		if err := s.files.DeleteFiles(ctx, task.Images); err != nil {
			s.log.WithField("task", task.ID).WithError(err).Warn("image cleanup failed during delete")
		}
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskHistoryEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, "id = ?", task.ID).Error
	})
	if err != nil {
		return err
	}

	if isAdmin && task.OwnerID != actorID {
		s.runPostCommitHooks(ctx, []postCommitHook{
			{"owner deletion notification", func(ctx context.Context) error {
				return s.notifier.Notify(ctx, notify.Notification{
					RecipientID: task.OwnerID,
					Role:        task.CreatedInMode,
					Type:        notify.TypeTaskDeletedByAdmin,
					Title:       "Task removed",
					Message:     fmt.Sprintf("Your task %q was removed by an administrator.", task.Title),
				})
			}},
		})
	}
	return nil
}

func (s *TaskServiceImpl) ModerateTask(ctx context.Context, db *gorm.DB, taskID, adminID uuid.UUID, action ModerationAction, comment *string) (*models.Task, error) {
	task, err := s.load(ctx, db, taskID)
	if err != nil {
		return nil, err
	}

	if err := ApplyModeration(task, adminID, action, comment); err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"moderation_status":  task.ModerationStatus,
		"moderation_comment": task.ModerationComment,
		"moderated_at":       task.ModeratedAt,
		"moderated_by":       task.ModeratedBy,
	}).Error
	if err != nil {
		return nil, err
	}

	notifType, title, message := moderationOutcome(action, task.Title, comment)
	s.runPostCommitHooks(ctx, []postCommitHook{
		{"moderation outcome notification", func(ctx context.Context) error {
			return s.notifier.Notify(ctx, notify.Notification{
				RecipientID: task.OwnerID,
				Role:        task.CreatedInMode,
				Type:        notifType,
				Title:       title,
				Message:     message,
				Link:        taskLink(task.ID),
			})
		}},
	})

	return s.reload(ctx, db, task.ID)
}

func (s *TaskServiceImpl) CloseTask(ctx context.Context, db *gorm.DB, taskID, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.load(ctx, db, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != actorID {
		return nil, fmt.Errorf("only the owner may close a task: %w", ErrForbidden)
	}
	if task.Status == models.TaskClosed {
		return nil, fmt.Errorf("task already closed: %w", ErrInvalidState)
	}

	err = db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID).
		Update("status", models.TaskClosed).Error
	if err != nil {
		return nil, err
	}

	s.runPostCommitHooks(ctx, []postCommitHook{
		{"task closed notification", func(ctx context.Context) error {
			return s.notifier.Notify(ctx, notify.Notification{
				RecipientID: task.OwnerID,
				Role:        task.CreatedInMode,
				Type:        notify.TypeTaskClosed,
				Title:       "Task closed",
				Message:     fmt.Sprintf("Your task %q is no longer accepting responses.", task.Title),
				Link:        taskLink(task.ID),
			})
		}},
	})

	return s.reload(ctx, db, task.ID)
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, db *gorm.DB, taskID uuid.UUID, viewer Viewer) (*models.Task, error) {
	task, err := s.load(ctx, db, taskID)
	if err != nil {
		return nil, err
	}
	if viewer.Admin || (viewer.Authenticated && viewer.ID == task.OwnerID) {
		return task, nil
	}
	if !task.PubliclyVisible() {
		// Hidden records read as absent for everyone else.
		return nil, notFound("task")
	}
	return task, nil
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, db *gorm.DB, viewer Viewer, filters TaskListFilters) ([]models.Task, int64, error) {
	base := filters.Apply(db.WithContext(ctx).Model(&models.Task{}).Scopes(VisibleTo(viewer)))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	err := filters.Paginate(filters.Order(base)).Preload("Tags").Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *TaskServiceImpl) ListPendingTasks(ctx context.Context, db *gorm.DB, page, limit int) ([]models.Task, int64, error) {
	base := db.WithContext(ctx).Model(&models.Task{}).Scopes(ModerationQueue)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	filters := TaskListFilters{Page: page, Limit: limit}
	var tasks []models.Task
	err := filters.Paginate(base.Order("created_at ASC")).Preload("Tags").Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// CountPendingTasks recomputes the review-queue size from the store on every
// call; moderation decisions never rely on an in-process counter.
func (s *TaskServiceImpl) CountPendingTasks(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&models.Task{}).Scopes(ModerationQueue).Count(&total).Error
	return total, err
}

func (s *TaskServiceImpl) load(ctx context.Context, db *gorm.DB, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := db.WithContext(ctx).Preload("Tags").First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("task")
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskServiceImpl) reload(ctx context.Context, db *gorm.DB, taskID uuid.UUID) (*models.Task, error) {
	return s.load(ctx, db, taskID)
}

type postCommitHook struct {
	name string
	run  func(ctx context.Context) error
}

// runPostCommitHooks executes best-effort side effects after the
// authoritative mutation committed. Each hook is isolated: a failure is
// logged and never propagated, and never affects the committed data.
func (s *TaskServiceImpl) runPostCommitHooks(ctx context.Context, hooks []postCommitHook) {
	for _, hook := range hooks {
		if err := hook.run(ctx); err != nil {
			s.log.WithField("hook", hook.name).WithError(err).Warn("post-commit hook failed")
		}
	}
}

func validateTitle(title string) error {
	if len(strings.TrimSpace(title)) < 3 {
		return invalidInput("title must be at least 3 characters")
	}
	return nil
}

func validateDescription(description string) error {
	if len(strings.TrimSpace(description)) < 10 {
		return invalidInput("description must be at least 10 characters")
	}
	return nil
}

func validateBudget(amount *int64) error {
	if amount != nil && *amount <= 0 {
		return invalidInput("budget amount must be a positive integer")
	}
	return nil
}

func validateImages(images []string) error {
	if len(images) > models.MaxTaskImages {
		return invalidInput("at most %d images are allowed", models.MaxTaskImages)
	}
	return nil
}

func categoryExists(db *gorm.DB, categoryID uuid.UUID) error {
	var count int64
	if err := db.Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("category")
	}
	return nil
}

// tagsBelongToCategory enforces the tag/category invariant: every supplied
// tag must exist and belong to the resolved category.
func tagsBelongToCategory(db *gorm.DB, tagIDs []uuid.UUID, categoryID uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	unique := make(map[uuid.UUID]bool, len(tagIDs))
	for _, id := range tagIDs {
		unique[id] = true
	}
	var count int64
	err := db.Model(&models.Tag{}).
		Where("id IN ? AND category_id = ?", tagIDs, categoryID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count != int64(len(unique)) {
		return notFound("tags")
	}
	return nil
}

// replaceTagAssociations swaps the whole join set: the association list is
// never patched in place.
func replaceTagAssociations(tx *gorm.DB, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]models.TaskTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		rows = append(rows, models.TaskTag{TaskID: taskID, TagID: tagID})
	}
	return tx.Create(&rows).Error
}

func adminIDs(db *gorm.DB) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Pluck("id", &ids).Error
	return ids, err
}

func taskLink(id uuid.UUID) *string {
	link := "/tasks/" + id.String()
	return &link
}
