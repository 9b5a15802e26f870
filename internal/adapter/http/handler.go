package http

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/civichub/civichub/internal/app"
	"github.com/civichub/civichub/internal/domain"
)

// maxUploadBytes caps the multipart submission body, attachment included.
const maxUploadBytes = 6 << 20

// ErrorEnvelope is the uniform failure body: {"success": false, "message": "..."}.
type ErrorEnvelope struct {
	status  int
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (e *ErrorEnvelope) Error() string { return e.Message }

func (e *ErrorEnvelope) GetStatus() int { return e.status }

// ComplaintView is the API representation of a complaint.
type ComplaintView struct {
	ComplaintID string  `json:"complaintId" doc:"Generated complaint identifier"`
	Name        string  `json:"name" doc:"Submitter name"`
	Email       string  `json:"email,omitempty" doc:"Submitter email"`
	Phone       string  `json:"phone,omitempty" doc:"Submitter phone"`
	Title       string  `json:"title" doc:"Complaint title"`
	Details     string  `json:"details" doc:"Complaint details"`
	Category    string  `json:"category,omitempty" doc:"Complaint category"`
	Location    string  `json:"location,omitempty" doc:"Location of the issue"`
	Priority    string  `json:"priority" doc:"Complaint priority"`
	Attachment  *string `json:"attachment" doc:"URL path of the uploaded attachment, or null"`
	Status      string  `json:"status" doc:"Current status"`
	CreatedAt   string  `json:"createdAt" doc:"Creation timestamp (ISO 8601)"`
}

// TimelineEntryView is the API representation of a timeline event.
type TimelineEntryView struct {
	Status    string `json:"status" doc:"Status recorded by this event"`
	Note      string `json:"note,omitempty" doc:"Optional note"`
	CreatedAt string `json:"createdAt" doc:"Event timestamp (ISO 8601)"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func toComplaintView(c domain.Complaint) ComplaintView {
	var attachment *string
	if c.Attachment != "" {
		url := "/uploads/" + c.Attachment
		attachment = &url
	}
	return ComplaintView{
		ComplaintID: c.ComplaintID,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		Title:       c.Title,
		Details:     c.Details,
		Category:    c.Category,
		Location:    c.Location,
		Priority:    c.Priority,
		Attachment:  attachment,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt.Format(timeFormat),
	}
}

func toTimelineViews(events []domain.TimelineEvent) []TimelineEntryView {
	views := make([]TimelineEntryView, len(events))
	for i, e := range events {
		views[i] = TimelineEntryView{
			Status:    e.Status,
			Note:      e.Note,
			CreatedAt: e.CreatedAt.Format(timeFormat),
		}
	}
	return views
}

// --- Submit Complaint ---

type SubmitComplaintInput struct {
	RawBody multipart.Form
}

type SubmitComplaintOutput struct {
	Body struct {
		Success     bool   `json:"success"`
		ComplaintID string `json:"complaintId" doc:"Generated complaint identifier"`
	}
}

// --- Lookup Complaint ---

type LookupComplaintInput struct {
	ID string `path:"id" doc:"Complaint identifier"`
}

type LookupComplaintOutput struct {
	Body struct {
		Success     bool                `json:"success"`
		ComplaintID string              `json:"complaintId" doc:"Complaint identifier"`
		Complaint   ComplaintView       `json:"complaint"`
		Timeline    []TimelineEntryView `json:"timeline" doc:"Full status history, oldest first"`
	}
}

// --- Add Timeline Event ---

type AddTimelineEventInput struct {
	ID   string `path:"id" doc:"Complaint identifier"`
	Body struct {
		Status string `json:"status,omitempty" maxLength:"100" doc:"New status (defaults to \"Updated\")"`
		Note   string `json:"note,omitempty" maxLength:"2000" doc:"Optional note"`
	}
}

type AddTimelineEventOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

// Register adds all complaint API routes to the Huma API and installs the
// uniform error envelope for failure responses.
func Register(api huma.API, svc *app.ComplaintService) {
	huma.NewError = func(status int, message string, _ ...error) huma.StatusError {
		return &ErrorEnvelope{status: status, Message: message}
	}

	huma.Register(api, huma.Operation{
		OperationID:   "submit-complaint",
		Method:        http.MethodPost,
		Path:          "/api/complaints/create",
		Summary:       "Submit a new complaint",
		Tags:          []string{"Complaints"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  maxUploadBytes,
	}, func(ctx context.Context, input *SubmitComplaintInput) (*SubmitComplaintOutput, error) {
		sub := domain.Submission{
			Name:     formValue(input.RawBody, "name"),
			Email:    formValue(input.RawBody, "email"),
			Phone:    formValue(input.RawBody, "phone"),
			Title:    formValue(input.RawBody, "title"),
			Details:  formValue(input.RawBody, "details"),
			Category: formValue(input.RawBody, "category"),
			Location: formValue(input.RawBody, "location"),
			Priority: formValue(input.RawBody, "priority"),
		}

		var upload *app.AttachmentUpload
		if files := input.RawBody.File["attachment"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return nil, huma.Error400BadRequest("could not read attachment")
			}
			defer f.Close()
			upload = &app.AttachmentUpload{Filename: files[0].Filename, Content: f}
		}

		complaint, err := svc.Submit(ctx, sub, upload)
		if err != nil {
			return nil, toAPIError(err)
		}

		out := &SubmitComplaintOutput{}
		out.Body.Success = true
		out.Body.ComplaintID = complaint.ComplaintID
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-complaint",
		Method:      http.MethodGet,
		Path:        "/api/complaints/{id}",
		Summary:     "Get a complaint and its timeline",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *LookupComplaintInput) (*LookupComplaintOutput, error) {
		complaint, events, err := svc.Lookup(ctx, input.ID)
		if err != nil {
			return nil, toAPIError(err)
		}

		out := &LookupComplaintOutput{}
		out.Body.Success = true
		out.Body.ComplaintID = complaint.ComplaintID
		out.Body.Complaint = toComplaintView(complaint)
		out.Body.Timeline = toTimelineViews(events)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-timeline-event",
		Method:      http.MethodPost,
		Path:        "/api/complaints/{id}/timeline",
		Summary:     "Append a status update to a complaint's timeline",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *AddTimelineEventInput) (*AddTimelineEventOutput, error) {
		entry, err := svc.AddTimelineEvent(ctx, input.ID, input.Body.Status, input.Body.Note)
		if err != nil {
			return nil, toAPIError(err)
		}

		out := &AddTimelineEventOutput{}
		out.Body.Success = true
		out.Body.Message = "status updated to " + entry.Status
		return out, nil
	})
}

// RegisterUploads serves stored attachments from dir at GET /uploads/{filename}.
func RegisterUploads(router chi.Router, dir string) {
	router.Get("/uploads/{filename}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		// Reject anything that could escape the uploads directory.
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			http.NotFound(w, r)
			return
		}

		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, path)
	})
}

func formValue(form multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// toAPIError translates domain errors to HTTP errors.
func toAPIError(err error) error {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error400BadRequest(valErr.Error())
	}

	if errors.Is(err, domain.ErrComplaintNotFound) {
		return huma.Error404NotFound("complaint not found")
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
