package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/civichub/civichub/internal/domain"
)

const tracerName = "github.com/civichub/civichub/internal/adapter/otel"

// TracingComplaintRepository wraps a domain.ComplaintRepository with
// OpenTelemetry tracing. Each method creates a span with semantic attributes
// and records errors.
type TracingComplaintRepository struct {
	next   domain.ComplaintRepository
	tracer trace.Tracer
}

// Compile-time check: TracingComplaintRepository implements domain.ComplaintRepository.
var _ domain.ComplaintRepository = (*TracingComplaintRepository)(nil)

// NewTracingComplaintRepository creates a tracing decorator around the given repository.
func NewTracingComplaintRepository(next domain.ComplaintRepository) *TracingComplaintRepository {
	return &TracingComplaintRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingComplaintRepository) Insert(ctx context.Context, complaint domain.Complaint) error {
	ctx, span := r.tracer.Start(ctx, "ComplaintRepository.Insert",
		trace.WithAttributes(
			attribute.String("complaint.id", complaint.ComplaintID),
			attribute.String("complaint.category", complaint.Category),
		),
	)
	defer span.End()

	err := r.next.Insert(ctx, complaint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingComplaintRepository) GetByID(ctx context.Context, id string) (domain.Complaint, error) {
	ctx, span := r.tracer.Start(ctx, "ComplaintRepository.GetByID",
		trace.WithAttributes(attribute.String("complaint.id", id)),
	)
	defer span.End()

	complaint, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return complaint, err
}

func (r *TracingComplaintRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	ctx, span := r.tracer.Start(ctx, "ComplaintRepository.UpdateStatus",
		trace.WithAttributes(
			attribute.String("complaint.id", id),
			attribute.String("complaint.status", string(status)),
		),
	)
	defer span.End()

	err := r.next.UpdateStatus(ctx, id, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// TracingTimelineRepository wraps a domain.TimelineRepository with
// OpenTelemetry tracing.
type TracingTimelineRepository struct {
	next   domain.TimelineRepository
	tracer trace.Tracer
}

// Compile-time check: TracingTimelineRepository implements domain.TimelineRepository.
var _ domain.TimelineRepository = (*TracingTimelineRepository)(nil)

// NewTracingTimelineRepository creates a tracing decorator around the given repository.
func NewTracingTimelineRepository(next domain.TimelineRepository) *TracingTimelineRepository {
	return &TracingTimelineRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingTimelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, span := r.tracer.Start(ctx, "TimelineRepository.Append",
		trace.WithAttributes(
			attribute.String("complaint.id", event.ComplaintID),
			attribute.String("event.status", event.Status),
		),
	)
	defer span.End()

	err := r.next.Append(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingTimelineRepository) ListByComplaintID(ctx context.Context, id string) ([]domain.TimelineEvent, error) {
	ctx, span := r.tracer.Start(ctx, "TimelineRepository.ListByComplaintID",
		trace.WithAttributes(attribute.String("complaint.id", id)),
	)
	defer span.End()

	events, err := r.next.ListByComplaintID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(events)))
	}
	return events, err
}
