package domain

import "time"

// Statuses recorded on timeline entries by the service itself. The creation
// entry is written for every complaint; DefaultEventStatus is used when a
// status update does not name a status.
const (
	CreationEventStatus = "Complaint Registered"
	CreationEventNote   = "Created by user"
	DefaultEventStatus  = "Updated"
)

// TimelineEvent is one append-only entry in a complaint's status history.
// Entries belong to exactly one complaint via ComplaintID and are never
// mutated or deleted; ordering is by CreatedAt ascending, with insertion
// order breaking ties.
type TimelineEvent struct {
	ComplaintID string
	Status      string
	Note        string
	CreatedAt   time.Time
}
