package models

import "gorm.io/gorm"

// Lifecycle is the archive state of a column or card.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleArchived Lifecycle = "archived"
	LifecyclePurged   Lifecycle = "purged"
)

// LifecycleOf derives the state of a persisted row from its soft-delete marker.
func LifecycleOf(deletedAt gorm.DeletedAt) Lifecycle {
	if deletedAt.Valid {
		return LifecycleArchived
	}
	return LifecycleActive
}

// CanTransition reports whether moving from l to next is allowed.
// Purging requires a prior archive.
func (l Lifecycle) CanTransition(next Lifecycle) bool {
	switch l {
	case LifecycleActive:
		return next == LifecycleArchived
	case LifecycleArchived:
		return next == LifecycleActive || next == LifecyclePurged
	}
	return false
}
