package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// NotifyWorker processes complaint notification jobs from the River queue.
// For now it logs the event; it is the seam where email or webhook delivery
// to the citizen would plug in.
type NotifyWorker struct {
	river.WorkerDefaults[NotifyJobArgs]
}

// Work processes a single notification job.
func (w *NotifyWorker) Work(ctx context.Context, job *river.Job[NotifyJobArgs]) error {
	slog.InfoContext(ctx, "complaint event",
		"event", job.Args.Event,
		"complaint_id", job.Args.ComplaintID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
