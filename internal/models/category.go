package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type Category struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"unique;not null"`
	Slug      string    `json:"slug" gorm:"unique;not null"`
	CreatedAt time.Time `json:"created_at"`

	Tags []Tag `json:"tags,omitempty" gorm:"foreignKey:CategoryID"`
}

// Tag belongs to exactly one category; a task may only carry tags from its
// own category.
type Tag struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	CategoryID uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index"`
	Name       string    `json:"name" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TaskTag is the join row between tasks and tags. The whole set is replaced
// (delete-all, re-insert) whenever an edit supplies a new tag list.
type TaskTag struct {
	TaskID uuid.UUID `gorm:"primaryKey;type:uuid"`
	TagID  uuid.UUID `gorm:"primaryKey;type:uuid"`
}

func (TaskTag) TableName() string {
	return "task_tags"
}
