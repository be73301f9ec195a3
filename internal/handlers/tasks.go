package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"task-market/backend/internal/models"
	"task-market/backend/internal/monitoring"
	"task-market/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

type createTaskInput struct {
	MarketplaceTargets []string `json:"marketplace_targets" binding:"required"`
	CategoryID         string   `json:"category_id" binding:"required"`
	Title              string   `json:"title" binding:"required"`
	Description        string   `json:"description" binding:"required"`
	BudgetAmount       *int64   `json:"budget_amount"`
	BudgetType         string   `json:"budget_type"`
	Images             []string `json:"images"`
	TagIDs             []string `json:"tag_ids"`
	CreatedInMode      string   `json:"created_in_mode"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var in createTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	categoryID, err := uuid.FromString(in.CategoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
		return
	}
	tagIDs, err := parseUUIDs(in.TagIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tag_ids"})
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), h.db, actor.ID, services.CreateTaskInput{
		MarketplaceTargets: in.MarketplaceTargets,
		CategoryID:         categoryID,
		Title:              in.Title,
		Description:        in.Description,
		BudgetAmount:       in.BudgetAmount,
		BudgetType:         models.BudgetType(in.BudgetType),
		Images:             in.Images,
		TagIDs:             tagIDs,
		CreatedInMode:      in.CreatedInMode,
	})
	if err != nil {
		handleTaskError(c, err)
		return
	}
	monitoring.CountTaskCreated()
	c.JSON(http.StatusCreated, task)
}

type updateTaskInput struct {
	MarketplaceTargets *[]string       `json:"marketplace_targets"`
	CategoryID         *string         `json:"category_id"`
	Title              *string         `json:"title"`
	Description        *string         `json:"description"`
	BudgetAmount       json.RawMessage `json:"budget_amount"`
	BudgetType         *string         `json:"budget_type"`
	Images             *[]string       `json:"images"`
	TagIDs             *[]string       `json:"tag_ids"`
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID := uuid.FromStringOrNil(c.Param("id"))

	var in updateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := services.TaskPatch{
		MarketplaceTargets: in.MarketplaceTargets,
		Title:              in.Title,
		Description:        in.Description,
		Images:             in.Images,
	}
	if in.CategoryID != nil {
		categoryID, err := uuid.FromString(*in.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		patch.CategoryID = &categoryID
	}
	if in.BudgetType != nil {
		budgetType := models.BudgetType(*in.BudgetType)
		patch.BudgetType = &budgetType
	}
	if in.TagIDs != nil {
		tagIDs, err := parseUUIDs(*in.TagIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tag_ids"})
			return
		}
		patch.TagIDs = &tagIDs
	}
	// budget_amount distinguishes "absent" from an explicit null.
	if len(in.BudgetAmount) > 0 {
		if string(in.BudgetAmount) == "null" {
			patch.BudgetAmount = services.OptionalAmount{Set: true}
		} else {
			var amount int64
			if err := json.Unmarshal(in.BudgetAmount, &amount); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid budget_amount"})
				return
			}
			patch.BudgetAmount = services.OptionalAmount{Set: true, Value: &amount}
		}
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), h.db, taskID, actor.ID, patch)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID := uuid.FromStringOrNil(c.Param("id"))

	err := h.taskService.DeleteTask(c.Request.Context(), h.db, taskID, actor.ID, actor.Admin)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *TaskHandler) CloseTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID := uuid.FromStringOrNil(c.Param("id"))

	task, err := h.taskService.CloseTask(c.Request.Context(), h.db, taskID, actor.ID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type moderateTaskInput struct {
	Action  string  `json:"action" binding:"required"`
	Comment *string `json:"comment"`
}

func (h *TaskHandler) ModerateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID := uuid.FromStringOrNil(c.Param("id"))

	var in moderateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.ModerateTask(c.Request.Context(), h.db, taskID, actor.ID,
		services.ModerationAction(in.Action), in.Comment)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	monitoring.CountTaskModerated()
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	taskID := uuid.FromStringOrNil(c.Param("id"))

	task, err := h.taskService.GetTask(c.Request.Context(), h.db, taskID, viewerFromContext(c))
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	filters, err := parseListFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), h.db, viewerFromContext(c), filters)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": total,
	})
}

func (h *TaskHandler) GetPendingTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	tasks, total, err := h.taskService.ListPendingTasks(c.Request.Context(), h.db, page, limit)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": total,
	})
}

func (h *TaskHandler) GetPendingCount(c *gin.Context) {
	total, err := h.taskService.CountPendingTasks(c.Request.Context(), h.db)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": total})
}

func parseListFilters(c *gin.Context) (services.TaskListFilters, error) {
	filters := services.TaskListFilters{
		MarketplaceTarget: c.Query("marketplaceTarget"),
		Status:            models.TaskStatus(c.Query("status")),
		Search:            c.Query("search"),
		CreatedInMode:     c.Query("createdInMode"),
		SortBy:            c.DefaultQuery("sortBy", "createdAt"),
		SortOrder:         c.DefaultQuery("sortOrder", "desc"),
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	if raw := c.Query("categoryId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			return filters, errors.New("invalid categoryId")
		}
		filters.CategoryID = &id
	}
	if raw := c.QueryArray("tagIds"); len(raw) > 0 {
		tagIDs, err := parseUUIDs(raw)
		if err != nil {
			return filters, errors.New("invalid tagIds")
		}
		filters.TagIDs = tagIDs
	}
	if raw := c.Query("budgetMin"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filters, errors.New("invalid budgetMin")
		}
		filters.BudgetMin = &v
	}
	if raw := c.Query("budgetMax"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filters, errors.New("invalid budgetMax")
		}
		filters.BudgetMax = &v
	}
	return filters, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.FromString(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func handleTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process task request",
		})
	}
}
