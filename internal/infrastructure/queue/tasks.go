// Package queue delivers material cost changes to the recipe propagation
// worker through asynq.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"backoffice/internal/core/id"
)

const (
	// QueueDefault is the queue propagation tasks run on.
	QueueDefault = "default"

	// TaskPropagateCost recomputes recipes that use a material.
	TaskPropagateCost = "recipe:propagate_cost"

	// uniqueWindow collapses bursts of changes to one material into one task.
	uniqueWindow = 30 * time.Second

	maxRetry = 5
)

// PropagateCostPayload is the body of TaskPropagateCost.
type PropagateCostPayload struct {
	MaterialID id.ID `json:"material_id"`
}

// NewPropagateCostTask builds the task for materialID.
func NewPropagateCostTask(materialID id.ID) (*asynq.Task, error) {
	body, err := json.Marshal(PropagateCostPayload{MaterialID: materialID})
	if err != nil {
		return nil, fmt.Errorf("marshal propagate payload: %w", err)
	}
	return asynq.NewTask(TaskPropagateCost, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxRetry),
		asynq.Unique(uniqueWindow),
	), nil
}

// ParsePropagateCostPayload decodes and validates a task body.
func ParsePropagateCostPayload(body []byte) (PropagateCostPayload, error) {
	var p PropagateCostPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return p, fmt.Errorf("decode propagate payload: %w", err)
	}
	if id.IsNil(p.MaterialID) {
		return p, fmt.Errorf("propagate payload has no material_id")
	}
	return p, nil
}
