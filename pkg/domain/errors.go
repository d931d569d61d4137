package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionBusy is returned when a submission arrives while another one is in flight.
var ErrSessionBusy = errors.New("session is waiting for a reply")

// ErrUnknownFlow is returned when a submission names a flow that is not in the catalog.
var ErrUnknownFlow = errors.New("unknown flow")

// ErrUnknownStep is returned when a submission names a step the flow does not define.
var ErrUnknownStep = errors.New("unknown step")

// ErrTurnNotFound is returned when a turn ID does not exist in the transcript.
var ErrTurnNotFound = errors.New("turn not found")

// ErrNotAForm is returned when answering a turn that does not carry a form.
var ErrNotAForm = errors.New("turn is not a form prompt")

// ErrResolveTimeout is returned when the resolver does not answer within the configured timeout.
var ErrResolveTimeout = errors.New("resolve timed out")
