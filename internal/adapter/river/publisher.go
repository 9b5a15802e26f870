package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/civichub/civichub/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// NotifyJobArgs carries the data needed to notify about a complaint event
// asynchronously. River serializes this as JSON into its job queue table. It
// includes a snapshot of the timeline entry at publish time, so the worker
// never needs to query the database.
type NotifyJobArgs struct {
	Event       string `json:"event"`
	ComplaintID string `json:"complaint_id"`
	Status      string `json:"status"`
	Note        string `json:"note"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotifyJobArgs) Kind() string { return "complaint.notify" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a complaint event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, entry domain.TimelineEvent) error {
	_, err := p.client.Insert(ctx, NotifyJobArgs{
		Event:       string(event),
		ComplaintID: entry.ComplaintID,
		Status:      entry.Status,
		Note:        entry.Note,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}
