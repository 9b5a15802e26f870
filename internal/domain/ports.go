package domain

import (
	"context"
	"io"
)

// ComplaintRepository defines the persistence contract for complaints.
type ComplaintRepository interface {
	Insert(ctx context.Context, complaint Complaint) error
	GetByID(ctx context.Context, id string) (Complaint, error)
	// UpdateStatus sets the current status of a complaint. Updating an
	// unknown id affects nothing and is not an error.
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// TimelineRepository defines the persistence contract for timeline entries.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	ListByComplaintID(ctx context.Context, id string) ([]TimelineEvent, error)
}

// Transactor runs fn atomically: every repository call made with the context
// fn receives commits or rolls back as one unit.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AttachmentStore persists uploaded files under storage-assigned names.
type AttachmentStore interface {
	// Save stores the content and returns the assigned filename, which is
	// always distinct from the user-supplied original name.
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
}

// EventPublisher defines the contract for emitting complaint events. The
// timeline entry carries the snapshot (complaint id, status, note) the
// consumer needs.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, entry TimelineEvent) error
}

// TransitionValidator checks whether a complaint may move from one status to
// another. Only consulted in strict status mode.
type TransitionValidator interface {
	Validate(ctx context.Context, current, next Status) error
}
