package services

import (
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"task-market/backend/internal/models"
)

// Viewer identifies who is asking. The zero value is an unauthenticated
// caller.
type Viewer struct {
	ID            uuid.UUID
	Authenticated bool
	Admin         bool
}

var AnonymousViewer = Viewer{}

func AdminViewer(id uuid.UUID) Viewer {
	return Viewer{ID: id, Authenticated: true, Admin: true}
}

func UserViewer(id uuid.UUID) Viewer {
	return Viewer{ID: id, Authenticated: true}
}

// PublicCatalog restricts a query to tasks visible in the public catalog:
// explicitly approved, or legacy rows with no moderation status at all.
func PublicCatalog(db *gorm.DB) *gorm.DB {
	return db.Where("moderation_status = ? OR moderation_status IS NULL", models.ModerationApproved)
}

// VisibleTo applies the read predicate for a viewer. Admins see everything;
// authenticated users additionally see their own records in any moderation
// state; everyone else gets the public catalog.
func VisibleTo(viewer Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer.Admin {
			return db
		}
		if viewer.Authenticated {
			return db.Where("owner_id = ? OR moderation_status = ? OR moderation_status IS NULL",
				viewer.ID, models.ModerationApproved)
		}
		return PublicCatalog(db)
	}
}

// ModerationQueue is the complement of the public predicate used by the
// admin review screen.
func ModerationQueue(db *gorm.DB) *gorm.DB {
	return db.Where("moderation_status IN ?", []models.ModerationStatus{
		models.ModerationPending, models.ModerationRevision,
	})
}

// TaskListFilters are the optional catalog filters. Zero values and nil
// pointers mean "not applied".
type TaskListFilters struct {
	CategoryID        *uuid.UUID
	TagIDs            []uuid.UUID
	MarketplaceTarget string
	Status            models.TaskStatus
	BudgetMin         *int64
	BudgetMax         *int64
	Search            string
	CreatedInMode     string
	SortBy            string
	SortOrder         string
	Page              int
	Limit             int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"budgetAmount": "budget_amount",
}

// Apply narrows the query by every supplied filter, without pagination or
// ordering (so the same filtered query can back both the rows and the count).
func (f TaskListFilters) Apply(db *gorm.DB) *gorm.DB {
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if len(f.TagIDs) > 0 {
		db = db.Where("id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&models.TaskTag{}).
				Select("task_id").
				Where("tag_id IN ?", f.TagIDs))
	}
	if f.MarketplaceTarget != "" {
		// Targets are stored as a JSON array in a text column; a quoted
		// containment match works on both sqlite and postgres.
		db = db.Where("marketplace_targets LIKE ?", fmt.Sprintf("%%%q%%", f.MarketplaceTarget))
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.BudgetMin != nil {
		db = db.Where("budget_amount >= ?", *f.BudgetMin)
	}
	if f.BudgetMax != nil {
		db = db.Where("budget_amount <= ?", *f.BudgetMax)
	}
	if f.Search != "" {
		needle := "%" + strings.ToLower(f.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", needle, needle)
	}
	if f.CreatedInMode != "" {
		db = db.Where("created_in_mode = ?", f.CreatedInMode)
	}
	return db
}

// Order applies the sort; unknown columns fall back to newest-first.
func (f TaskListFilters) Order(db *gorm.DB) *gorm.DB {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}
	return db.Order(column + " " + direction)
}

// Paginate applies page/limit with sane bounds.
func (f TaskListFilters) Paginate(db *gorm.DB) *gorm.DB {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	return db.Offset((page - 1) * limit).Limit(limit)
}
