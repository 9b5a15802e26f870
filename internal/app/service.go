package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/civichub/civichub/internal/domain"
)

// maxIDAttempts bounds the identifier retry loop on duplicate collisions.
const maxIDAttempts = 5

// AttachmentUpload is an uploaded file handed to Submit. Filename is the
// user-supplied name, used only to derive the stored file's extension.
type AttachmentUpload struct {
	Filename string
	Content  io.Reader
}

// ComplaintService orchestrates complaint submission, lookup and status
// updates. The validator may be nil, in which case status strings are
// accepted free-form.
type ComplaintService struct {
	complaints  domain.ComplaintRepository
	timeline    domain.TimelineRepository
	tx          domain.Transactor
	attachments domain.AttachmentStore
	publisher   domain.EventPublisher
	validator   domain.TransitionValidator
}

// NewComplaintService creates a service with the given adapters.
func NewComplaintService(
	complaints domain.ComplaintRepository,
	timeline domain.TimelineRepository,
	tx domain.Transactor,
	attachments domain.AttachmentStore,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
) *ComplaintService {
	return &ComplaintService{
		complaints:  complaints,
		timeline:    timeline,
		tx:          tx,
		attachments: attachments,
		publisher:   publisher,
		validator:   validator,
	}
}

// Submit validates and persists a new complaint together with its creation
// timeline entry. The two writes commit as one transaction, so readers never
// observe a complaint without its first event. A generated identifier that
// collides with an existing row is discarded and regenerated.
func (s *ComplaintService) Submit(ctx context.Context, sub domain.Submission, att *AttachmentUpload) (domain.Complaint, error) {
	if err := sub.Validate(); err != nil {
		return domain.Complaint{}, err
	}

	var stored string
	if att != nil {
		name, err := s.attachments.Save(ctx, att.Filename, att.Content)
		if err != nil {
			return domain.Complaint{}, fmt.Errorf("storing attachment: %w", err)
		}
		stored = name
	}

	var complaint domain.Complaint
	var created domain.TimelineEvent

	for attempt := 0; ; attempt++ {
		id, err := generateComplaintID(time.Now())
		if err != nil {
			return domain.Complaint{}, fmt.Errorf("generating complaint id: %w", err)
		}

		complaint = domain.NewComplaint(id, sub, stored)
		created = domain.TimelineEvent{
			ComplaintID: id,
			Status:      domain.CreationEventStatus,
			Note:        domain.CreationEventNote,
			CreatedAt:   complaint.CreatedAt,
		}

		err = s.tx.InTx(ctx, func(ctx context.Context) error {
			if err := s.complaints.Insert(ctx, complaint); err != nil {
				return err
			}
			return s.timeline.Append(ctx, created)
		})
		if err == nil {
			break
		}

		var dupErr *domain.DuplicateIDError
		if errors.As(err, &dupErr) && attempt < maxIDAttempts-1 {
			continue
		}
		return domain.Complaint{}, fmt.Errorf("creating complaint: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventRegistered, created); err != nil {
		return domain.Complaint{}, fmt.Errorf("publishing registration event: %w", err)
	}

	return complaint, nil
}

// Lookup returns a complaint and its full timeline, ordered by creation time
// ascending. The timeline is never paginated.
func (s *ComplaintService) Lookup(ctx context.Context, id string) (domain.Complaint, []domain.TimelineEvent, error) {
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return domain.Complaint{}, nil, err
	}

	events, err := s.timeline.ListByComplaintID(ctx, id)
	if err != nil {
		return domain.Complaint{}, nil, fmt.Errorf("listing timeline: %w", err)
	}

	return complaint, events, nil
}

// AddTimelineEvent appends a status event and mirrors the status onto the
// complaint in one transaction. An unknown id still records the event: the
// status mirror affects zero rows and the call succeeds, matching the
// tracking surface's best-effort update semantics.
func (s *ComplaintService) AddTimelineEvent(ctx context.Context, id, status, note string) (domain.TimelineEvent, error) {
	if status == "" {
		status = domain.DefaultEventStatus
	}

	if s.validator != nil {
		if err := s.validateTransition(ctx, id, domain.Status(status)); err != nil {
			return domain.TimelineEvent{}, err
		}
	}

	entry := domain.TimelineEvent{
		ComplaintID: id,
		Status:      status,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.timeline.Append(ctx, entry); err != nil {
			return err
		}
		return s.complaints.UpdateStatus(ctx, id, domain.Status(status))
	})
	if err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("recording status update: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventStatusChanged, entry); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("publishing status event: %w", err)
	}

	return entry, nil
}

// validateTransition applies strict status rules. Unknown complaints and
// non-canonical current states are skipped: there is nothing to validate
// against.
func (s *ComplaintService) validateTransition(ctx context.Context, id string, next domain.Status) error {
	complaint, err := s.complaints.GetByID(ctx, id)
	if errors.Is(err, domain.ErrComplaintNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading complaint for validation: %w", err)
	}
	if !domain.IsCanonical(complaint.Status) {
		return nil
	}
	return s.validator.Validate(ctx, complaint.Status, next)
}
