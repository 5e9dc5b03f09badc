package adapter

import "context"

// EventPublisher fans job status out to an external notification layer.
// Delivery is at-most-once and best-effort; publish failures are logged by
// the caller and never fail the job.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}
