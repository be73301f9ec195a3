package services

import (
	"github.com/gofrs/uuid"

	"task-market/backend/internal/models"
)

// TaskPatch is the explicit optional-field shape of an edit. A nil pointer
// means "field not supplied"; list fields use *[]T so an empty list is
// distinguishable from an absent one. BudgetAmount needs two levels because
// the stored value itself is nullable.
type TaskPatch struct {
	MarketplaceTargets *[]string
	CategoryID         *uuid.UUID
	Title              *string
	Description        *string
	BudgetAmount       OptionalAmount
	BudgetType         *models.BudgetType
	Images             *[]string
	TagIDs             *[]uuid.UUID
}

// OptionalAmount distinguishes "not supplied" (Set false) from an explicit
// null (Set true, Value nil).
type OptionalAmount struct {
	Set   bool
	Value *int64
}

type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// TaskDiff is the result of comparing a patch against the stored record:
// the changed field names in check order, the per-field before/after pairs,
// and two full snapshots used verbatim as the history payload.
type TaskDiff struct {
	ChangedFields []string
	Changes       map[string]FieldChange
	PreviousData  models.JSONMap
	NewData       models.JSONMap
}

func (d *TaskDiff) Changed(field string) bool {
	_, ok := d.Changes[field]
	return ok
}

func (d *TaskDiff) Empty() bool {
	return len(d.ChangedFields) == 0
}

// ComputeTaskDiff compares every trackable field supplied in the patch
// against the task's stored value. Set-valued fields (marketplace targets,
// tag ids) compare order-insensitively; images compare as an ordered
// sequence; everything else is scalar equality. Fields are checked in a
// fixed order so ChangedFields is deterministic.
func ComputeTaskDiff(task *models.Task, patch TaskPatch) *TaskDiff {
	diff := &TaskDiff{
		Changes:      make(map[string]FieldChange),
		PreviousData: make(models.JSONMap),
		NewData:      make(models.JSONMap),
	}

	oldTagIDs := uuidStrings(task.TagIDs())

	record := func(field string, old, new interface{}, changed bool) {
		diff.PreviousData[field] = old
		diff.NewData[field] = new
		if changed {
			diff.ChangedFields = append(diff.ChangedFields, field)
			diff.Changes[field] = FieldChange{Old: old, New: new}
		}
	}

	if patch.Title != nil {
		record("title", task.Title, *patch.Title, *patch.Title != task.Title)
	} else {
		record("title", task.Title, task.Title, false)
	}

	if patch.Description != nil {
		record("description", task.Description, *patch.Description, *patch.Description != task.Description)
	} else {
		record("description", task.Description, task.Description, false)
	}

	if patch.BudgetAmount.Set {
		record("budgetAmount", amountValue(task.BudgetAmount), amountValue(patch.BudgetAmount.Value),
			!amountsEqual(task.BudgetAmount, patch.BudgetAmount.Value))
	} else {
		record("budgetAmount", amountValue(task.BudgetAmount), amountValue(task.BudgetAmount), false)
	}

	if patch.BudgetType != nil {
		record("budgetType", string(task.BudgetType), string(*patch.BudgetType), *patch.BudgetType != task.BudgetType)
	} else {
		record("budgetType", string(task.BudgetType), string(task.BudgetType), false)
	}

	if patch.CategoryID != nil {
		record("categoryId", task.CategoryID.String(), patch.CategoryID.String(), *patch.CategoryID != task.CategoryID)
	} else {
		record("categoryId", task.CategoryID.String(), task.CategoryID.String(), false)
	}

	if patch.MarketplaceTargets != nil {
		record("marketplaceTargets", []string(task.MarketplaceTargets), *patch.MarketplaceTargets,
			!sameStringSet(task.MarketplaceTargets, *patch.MarketplaceTargets))
	} else {
		record("marketplaceTargets", []string(task.MarketplaceTargets), []string(task.MarketplaceTargets), false)
	}

	if patch.Images != nil {
		record("images", []string(task.Images), *patch.Images, !sameStringSeq(task.Images, *patch.Images))
	} else {
		record("images", []string(task.Images), []string(task.Images), false)
	}

	if patch.TagIDs != nil {
		newTagIDs := uuidStrings(*patch.TagIDs)
		record("tagIds", oldTagIDs, newTagIDs, !sameStringSet(oldTagIDs, newTagIDs))
	} else {
		record("tagIds", oldTagIDs, oldTagIDs, false)
	}

	return diff
}

// RemovedImages returns the URLs present before the edit but absent after,
// i.e. the files that can be cleaned up once the edit commits.
func RemovedImages(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, url := range after {
		kept[url] = true
	}
	var removed []string
	for _, url := range before {
		if !kept[url] {
			removed = append(removed, url)
		}
	}
	return removed
}

func amountValue(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func amountsEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameStringSeq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
		if seen[s] < 0 {
			return false
		}
	}
	return true
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
