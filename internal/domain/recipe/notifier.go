package recipe

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// InlineNotifier runs propagation synchronously when a material's average
// cost changes. Used when no task queue is configured.
type InlineNotifier struct {
	propagator *Propagator
}

// NewInlineNotifier creates a notifier calling p directly.
func NewInlineNotifier(p *Propagator) *InlineNotifier {
	return &InlineNotifier{propagator: p}
}

// MaterialCostChanged propagates the change. Errors are logged and returned
// so the caller can decide whether to surface them; the ledger is never affected.
func (n *InlineNotifier) MaterialCostChanged(ctx context.Context, materialID id.ID) error {
	if _, err := n.propagator.PropagateMaterialCostChange(ctx, materialID); err != nil {
		logger.Error(ctx, "inline cost propagation failed", "material_id", materialID, "error", err)
		return err
	}
	return nil
}
