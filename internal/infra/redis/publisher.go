package redis

import (
	"context"
	"encoding/json"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*EventPublisher)(nil)

// EventPublisher fans job status events out over Redis pub/sub so that
// other replicas (and tooling subscribed to jobs:<id>) see lifecycle
// transitions without polling the database.
type EventPublisher struct {
	client RedisClient
}

func NewEventPublisher(client RedisClient) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channel, data)
}
