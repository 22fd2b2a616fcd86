package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"backoffice/internal/core/id"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/pkg/logger"
)

// Client submits propagation tasks.
//
// It implements inventory.CostChangeNotifier for deployments that enqueue
// directly after commit, and postgres.OutboxHandler for the outbox relay.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq client.
func NewClient(redisOpt asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpt)}
}

// MaterialCostChanged enqueues propagation for materialID.
// A task already queued for the same material inside the unique window
// makes this a no-op.
func (c *Client) MaterialCostChanged(ctx context.Context, materialID id.ID) error {
	task, err := NewPropagateCostTask(materialID)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Debug(ctx, "propagation already queued", "material_id", materialID)
			return nil
		}
		return fmt.Errorf("enqueue propagation: %w", err)
	}

	logger.Debug(ctx, "propagation queued", "material_id", materialID, "task_id", info.ID)
	return nil
}

// Handle forwards MaterialCostChanged outbox events to the queue.
func (c *Client) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	ev, err := postgres.DecodeMaterialCostChanged(msg)
	if err != nil {
		return err
	}
	return c.MaterialCostChanged(ctx, ev.MaterialID)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
