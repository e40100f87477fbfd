package models

import "time"

// Group represents a set of students taught together.
// Deleting a group never deletes its students.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Grade 9 Algebra").
	Name string `json:"name" validate:"required"`

	// StudentIDs is the ordered list of member student IDs.
	// The ledger removes duplicates on write, keeping first occurrence order.
	StudentIDs []string `json:"studentIds"`

	// Schedule is the optional weekly meeting plan of the group.
	Schedule []ScheduleSlot `json:"schedule,omitempty" validate:"omitempty,dive"`

	// CreatedAt is when the group was created.
	CreatedAt time.Time `json:"createdAt"`
}

// HasMember reports whether studentID is in the group.
func (g *Group) HasMember(studentID string) bool {
	for _, id := range g.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
