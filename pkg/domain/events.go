package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnAppended  EventType = "turn_appended"
	EventFlowStep      EventType = "flow_step"
	EventFlowCompleted EventType = "flow_completed"
	EventResolveFailed EventType = "resolve_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TurnEvent is emitted for every turn appended to a transcript.
type TurnEvent struct {
	EventBase
	Turn Turn `json:"turn"`
}

// FlowEvent is emitted when the resolver prompts a step or completes a flow.
type FlowEvent struct {
	EventBase
	FlowID    string `json:"flow_id"`
	StepID    string `json:"step_id,omitempty"`
	StepIndex int    `json:"step_index"`
	StepCount int    `json:"step_count"`
	Reference string `json:"reference,omitempty"`
}

// FaultEvent is emitted when a resolve call fails or times out.
type FaultEvent struct {
	EventBase
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTurnAppended  func(context.Context, *TurnEvent)
	OnFlowStep      func(context.Context, *FlowEvent)
	OnFlowCompleted func(context.Context, *FlowEvent)
	OnResolveFailed func(context.Context, *FaultEvent)
}

// CombineHooks fans every callback out to each of the given hook sets, in order.
func CombineHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnAppended: func(ctx context.Context, e *TurnEvent) {
			for _, h := range hooks {
				if h.OnTurnAppended != nil {
					h.OnTurnAppended(ctx, e)
				}
			}
		},
		OnFlowStep: func(ctx context.Context, e *FlowEvent) {
			for _, h := range hooks {
				if h.OnFlowStep != nil {
					h.OnFlowStep(ctx, e)
				}
			}
		},
		OnFlowCompleted: func(ctx context.Context, e *FlowEvent) {
			for _, h := range hooks {
				if h.OnFlowCompleted != nil {
					h.OnFlowCompleted(ctx, e)
				}
			}
		},
		OnResolveFailed: func(ctx context.Context, e *FaultEvent) {
			for _, h := range hooks {
				if h.OnResolveFailed != nil {
					h.OnResolveFailed(ctx, e)
				}
			}
		},
	}
}
