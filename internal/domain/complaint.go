package domain

import "time"

// Status is the current lifecycle state of a complaint. The canonical states
// below describe the expected lifecycle, but callers may record free-form
// statuses unless strict validation is enabled.
type Status string

const (
	StatusRegistered Status = "Registered"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
	StatusReopened   Status = "Reopened"
	StatusClosed     Status = "Closed"
)

// Event identifies what happened to a complaint, used for async notification.
type Event string

const (
	EventRegistered    Event = "complaint.registered"
	EventStatusChanged Event = "complaint.status_changed"
)

// DefaultPriority is assigned when a submission does not specify one.
const DefaultPriority = "Normal"

// Transition defines a valid canonical status change.
type Transition struct {
	Src Status
	Dst Status
}

// Transitions defines all valid canonical status changes. This is domain
// knowledge consumed by the FSM adapter when strict status mode is on.
var Transitions = []Transition{
	{Src: StatusRegistered, Dst: StatusInProgress},
	{Src: StatusRegistered, Dst: StatusResolved},
	{Src: StatusRegistered, Dst: StatusRejected},
	{Src: StatusInProgress, Dst: StatusResolved},
	{Src: StatusInProgress, Dst: StatusRejected},
	{Src: StatusResolved, Dst: StatusClosed},
	{Src: StatusResolved, Dst: StatusReopened},
	{Src: StatusRejected, Dst: StatusClosed},
	{Src: StatusRejected, Dst: StatusReopened},
	{Src: StatusReopened, Dst: StatusInProgress},
	{Src: StatusReopened, Dst: StatusResolved},
	{Src: StatusReopened, Dst: StatusRejected},
}

// IsCanonical reports whether s is one of the enumerated lifecycle states.
func IsCanonical(s Status) bool {
	switch s {
	case StatusRegistered, StatusInProgress, StatusResolved,
		StatusRejected, StatusReopened, StatusClosed:
		return true
	}
	return false
}

// Submission holds the citizen-supplied fields of a new complaint.
type Submission struct {
	Name     string
	Email    string
	Phone    string
	Title    string
	Details  string
	Category string
	Location string
	Priority string
}

// Validate checks the mandatory fields. It returns a *ValidationError naming
// every missing field, or nil when the submission is complete.
func (s Submission) Validate() error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Title == "" {
		missing = append(missing, "title")
	}
	if s.Details == "" {
		missing = append(missing, "details")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Complaint is the core domain entity describing a citizen-submitted issue.
// ComplaintID is assigned exactly once at creation; only Status mutates
// afterwards. Attachment holds the storage-assigned filename, empty when the
// submission carried no file.
type Complaint struct {
	ComplaintID string
	Name        string
	Email       string
	Phone       string
	Title       string
	Details     string
	Category    string
	Location    string
	Priority    string
	Attachment  string
	Status      Status
	CreatedAt   time.Time
}

// NewComplaint creates a complaint in the initial "Registered" state.
func NewComplaint(id string, sub Submission, attachment string) Complaint {
	priority := sub.Priority
	if priority == "" {
		priority = DefaultPriority
	}
	return Complaint{
		ComplaintID: id,
		Name:        sub.Name,
		Email:       sub.Email,
		Phone:       sub.Phone,
		Title:       sub.Title,
		Details:     sub.Details,
		Category:    sub.Category,
		Location:    sub.Location,
		Priority:    priority,
		Attachment:  attachment,
		Status:      StatusRegistered,
		CreatedAt:   time.Now().UTC(),
	}
}
