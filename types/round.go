package types

import "fmt"

// Height indexes a committed block. View indexes an attempt within a
// height; view 0 is the first attempt after the previous height persisted.
type Height uint32

type View uint8

// Role is the single role tag a validator holds for a given (Height, View).
// Exactly one of these holds at a time (data model invariant 1).
type Role uint8

const (
	RolePriorityPrimary Role = iota
	RoleFallbackPrimary
	RoleBackup
	RoleWatchOnly
)

func (r Role) String() string {
	switch r {
	case RolePriorityPrimary:
		return "priority-primary"
	case RoleFallbackPrimary:
		return "fallback-primary"
	case RoleBackup:
		return "backup"
	case RoleWatchOnly:
		return "watch-only"
	default:
		return fmt.Sprintf("role(%d)", r)
	}
}

// SlotID selects one of the two proposal tracks within a view: 0 is the
// priority primary's slot, 1 is the fallback primary's.
type SlotID uint8

const (
	SlotPriority SlotID = 0
	SlotFallback SlotID = 1
)

func (s SlotID) String() string {
	if s == SlotPriority {
		return "priority"
	}
	return "fallback"
}

// PrimaryIndex returns the validator index authorized to propose on the
// priority slot (pId=0) at view v, out of n validators.
func PrimaryIndex(h Height, v View, n int) int {
	if n <= 0 {
		return -1
	}
	idx := (int64(h) - int64(v)) % int64(n)
	if idx < 0 {
		idx += int64(n)
	}
	return int(idx)
}

// FallbackPrimaryIndex returns the validator index authorized to propose on
// the fallback slot (pId=1) at view v.
func FallbackPrimaryIndex(h Height, v View, n int) int {
	if n <= 0 {
		return -1
	}
	return (PrimaryIndex(h, v, n) + 1) % n
}

// IndexForSlot is PrimaryIndex or FallbackPrimaryIndex depending on pId.
func IndexForSlot(h Height, v View, n int, pId SlotID) int {
	if pId == SlotPriority {
		return PrimaryIndex(h, v, n)
	}
	return FallbackPrimaryIndex(h, v, n)
}
