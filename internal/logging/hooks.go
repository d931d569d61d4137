package logging

import (
	"context"
	"log/slog"

	"github.com/aretw0/concierge/pkg/domain"
)

// Hooks returns lifecycle hooks that log conversation activity at debug level
// and resolve faults at warn level.
func Hooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnAppended: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "Turn appended",
				"session_id", e.SessionID,
				"role", e.Turn.Role,
				"presentation", e.Turn.Presentation,
				"turn_id", e.Turn.ID,
			)
		},
		OnFlowStep: func(ctx context.Context, e *domain.FlowEvent) {
			logger.DebugContext(ctx, "Flow step",
				"session_id", e.SessionID,
				"flow", e.FlowID,
				"step", e.StepID,
				"index", e.StepIndex,
				"count", e.StepCount,
			)
		},
		OnFlowCompleted: func(ctx context.Context, e *domain.FlowEvent) {
			logger.InfoContext(ctx, "Flow completed",
				"session_id", e.SessionID,
				"flow", e.FlowID,
				"reference", e.Reference,
			)
		},
		OnResolveFailed: func(ctx context.Context, e *domain.FaultEvent) {
			logger.WarnContext(ctx, "Resolve failed",
				"session_id", e.SessionID,
				"duration", e.Duration,
				"error", e.Err,
			)
		},
	}
}
