package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/schema"
)

// DefaultLockTTL bounds how long a distributed session lock may be held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// ChangeFunc receives the transcript diff of every persisted change.
type ChangeFunc func(ctx context.Context, diff *domain.TranscriptDiff)

// Manager owns the conversations: it serializes access per session, drives the
// Idle -> Waiting -> Idle cycle around each resolve call and publishes records.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store    ports.ConversationStore
	resolver ports.Resolver

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker     ports.DistributedLocker
	lockTTL    time.Duration
	catalog    ports.FlowCatalog
	sink       ports.RecordSink
	hooks      domain.LifecycleHooks
	onChange   ChangeFunc
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithCatalog lets SubmitForm validate values against the step they answer.
// Without a catalog SubmitForm rejects every form; Answer still works.
func WithCatalog(catalog ports.FlowCatalog) Option {
	return func(m *Manager) {
		m.catalog = catalog
	}
}

// WithSink publishes the record of every completed flow.
func WithSink(sink ports.RecordSink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithChangeListener is called after every save with what changed.
func WithChangeListener(fn ChangeFunc) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// WithStaleAfter sets how long a conversation may stay Waiting before the next
// access recovers it to Idle. Use twice the resolve timeout; zero or less
// disables recovery.
func WithStaleAfter(d time.Duration) Option {
	return func(m *Manager) {
		m.staleAfter = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager over a store and the resolver that
// answers submissions (usually a runtime.LocalTransport).
func NewManager(store ports.ConversationStore, resolver ports.Resolver, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		resolver:   resolver,
		locks:      make(map[string]*lockEntry),
		lockTTL:    DefaultLockTTL,
		staleAfter: 2 * runtime.DefaultResolveTimeout,
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load retrieves an existing conversation from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.load(ctx, sessionID)
		return err
	})
	return conv, err
}

// LoadOrStart loads a conversation, creating an empty one when none exists.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.loadOrCreate(ctx, sessionID)
		return err
	})
	return conv, err
}

// Delete removes the conversation from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}

// Turns returns the transcript of a session in insertion order.
// An unknown session has an empty transcript.
func (m *Manager) Turns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	conv, err := m.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return []domain.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

// Busy reports whether a submission is in flight for the session.
func (m *Manager) Busy(ctx context.Context, sessionID string) (bool, error) {
	conv, err := m.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return conv.Busy(), nil
}

// SubmitText appends a free-text user turn and the assistant's answer.
func (m *Manager) SubmitText(ctx context.Context, sessionID, text string) (domain.Turn, error) {
	return m.Submit(ctx, sessionID, domain.TextMessage(text))
}

// SubmitForm validates the values against the step they answer, then submits
// the form. Without a FlowID the flow is inferred from the draft; without a
// StepID the answered step is the first active one the carried draft leaves
// incomplete. A form that cannot be placed in a flow fails with
// domain.ErrUnknownFlow and nothing is appended.
func (m *Manager) SubmitForm(ctx context.Context, sessionID string, sub domain.FormSubmission) (domain.Turn, error) {
	flow, err := m.formFlow(sub)
	if err != nil {
		return domain.Turn{}, err
	}
	sub.FlowID = flow.ID
	if err := checkSubmission(flow, sub); err != nil {
		return domain.Turn{}, err
	}
	return m.Submit(ctx, sessionID, domain.FormMessage(sub))
}

func (m *Manager) formFlow(sub domain.FormSubmission) (domain.Flow, error) {
	if m.catalog == nil {
		return domain.Flow{}, fmt.Errorf("%w: no flow catalog to check the form against", domain.ErrUnknownFlow)
	}
	if sub.FlowID != "" {
		return m.catalog.Get(sub.FlowID)
	}
	draft := sub.Draft()
	if flow, ok := runtime.InferFlow(m.catalog, draft); ok {
		return flow, nil
	}
	if flow, ok := runtime.OwnerOf(m.catalog, draft); ok {
		return flow, nil
	}
	return domain.Flow{}, fmt.Errorf("%w: no flow matches fields %v", domain.ErrUnknownFlow, draft.Keys())
}

// checkSubmission runs the validation gate for a form. With a StepID the values
// must fit that step. Otherwise they may span the flow's active steps: every
// value is type checked, and required fields are enforced for the first step
// still pending in the carried draft and for any step the values touch.
func checkSubmission(flow domain.Flow, sub domain.FormSubmission) error {
	if sub.StepID != "" {
		step, ok := flow.Step(sub.StepID)
		if !ok {
			return fmt.Errorf("%w: %s/%s", domain.ErrUnknownStep, flow.ID, sub.StepID)
		}
		return schema.Validate(schema.FromFields(step.Fields), sub.Values)
	}

	var fields []domain.FieldSpec
	first := true
	for _, step := range flow.ActiveSteps(sub.Draft()) {
		pending := !step.Complete(sub.Carried)
		enforce := (pending && first) || touches(step, sub.Values)
		if pending {
			first = false
		}
		for _, f := range step.Fields {
			f.Required = f.Required && enforce
			fields = append(fields, f)
		}
	}
	return schema.Validate(schema.FromFields(fields), sub.Values)
}

func touches(step domain.Step, values domain.Draft) bool {
	for _, f := range step.Fields {
		if values.Has(f.Name) {
			return true
		}
	}
	return false
}

// Answer submits values for the form carried by an earlier assistant turn.
// Values are validated against that prompt's fields; on failure nothing is appended
// and the error is a *schema.AggregateError.
func (m *Manager) Answer(ctx context.Context, sessionID string, promptTurnID int64, values domain.Draft) (domain.Turn, error) {
	conv, err := m.Load(ctx, sessionID)
	if err != nil {
		return domain.Turn{}, err
	}
	turn, ok := conv.Turn(promptTurnID)
	if !ok {
		return domain.Turn{}, fmt.Errorf("%w: %d", domain.ErrTurnNotFound, promptTurnID)
	}
	if turn.Presentation != domain.PresentForm || turn.Form == nil {
		return domain.Turn{}, fmt.Errorf("%w: %d", domain.ErrNotAForm, promptTurnID)
	}
	prompt := turn.Form

	if err := schema.Validate(schema.FromFields(prompt.Fields), values); err != nil {
		return domain.Turn{}, err
	}
	return m.Submit(ctx, sessionID, domain.FormMessage(domain.FormSubmission{
		FlowID:  prompt.FlowID,
		StepID:  prompt.StepID,
		Carried: prompt.Draft,
		Values:  values,
	}))
}

// Submit runs one full cycle for a message: the user turn is appended and the
// conversation marked Waiting, the resolver is called without holding the lock,
// then the assistant turn is appended and the conversation settles back to Idle.
// A resolve fault becomes the generic error turn and is not returned.
// A second submission while one is in flight fails with domain.ErrSessionBusy.
func (m *Manager) Submit(ctx context.Context, sessionID string, msg domain.Message) (domain.Turn, error) {
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		conv, err := m.loadOrCreate(ctx, sessionID)
		if err != nil {
			return err
		}
		before := conv.Snapshot()

		now := m.now()
		if conv.Busy() {
			if !conv.Stale(now, m.staleAfter) {
				return domain.ErrSessionBusy
			}
			m.logger.Warn("Recovering stale conversation",
				"session_id", sessionID,
				"pending_since", conv.PendingSince,
			)
			conv.Settle(now)
		}

		user := conv.Append(runtime.UserTurn(msg, now))
		conv.Wait(now)
		if err := m.store.Save(ctx, sessionID, conv); err != nil {
			return fmt.Errorf("failed to save conversation: %w", err)
		}
		m.turnAppended(ctx, sessionID, user)
		m.changed(ctx, before, conv)
		return nil
	})
	if err != nil {
		return domain.Turn{}, err
	}

	start := m.now()
	reply, resolveErr := m.resolver.Resolve(ctx, msg)

	// Settle even if the caller went away, otherwise the session stays Waiting.
	settleCtx := context.WithoutCancel(ctx)

	var answer domain.Turn
	err = m.WithLock(settleCtx, sessionID, func(ctx context.Context) error {
		conv, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		before := conv.Snapshot()

		now := m.now()
		turn := runtime.Render(reply, now)
		if resolveErr != nil {
			turn = runtime.ErrorTurn(now)
		}
		answer = conv.Append(turn)
		conv.Settle(now)
		if err := m.store.Save(ctx, sessionID, conv); err != nil {
			return fmt.Errorf("failed to save conversation: %w", err)
		}
		m.turnAppended(ctx, sessionID, answer)
		m.changed(ctx, before, conv)
		return nil
	})
	if err != nil {
		return domain.Turn{}, err
	}

	if resolveErr != nil {
		m.logger.Warn("Resolve failed", "session_id", sessionID, "err", resolveErr)
		if m.hooks.OnResolveFailed != nil {
			m.hooks.OnResolveFailed(ctx, &domain.FaultEvent{
				EventBase: m.event(domain.EventResolveFailed, sessionID),
				Err:       resolveErr,
				Duration:  m.now().Sub(start),
			})
		}
		return answer, nil
	}

	m.flowEvents(settleCtx, sessionID, reply)
	return answer, nil
}

func (m *Manager) load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv.Stale(m.now(), m.staleAfter) {
		conv.Settle(m.now())
	}
	return conv, nil
}

func (m *Manager) loadOrCreate(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}

	conv = domain.NewConversation(sessionID)
	if err := m.store.Save(ctx, sessionID, conv); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return conv, nil
}

func (m *Manager) flowEvents(ctx context.Context, sessionID string, reply domain.Reply) {
	switch {
	case reply.Prompt != nil && m.hooks.OnFlowStep != nil:
		p := reply.Prompt
		m.hooks.OnFlowStep(ctx, &domain.FlowEvent{
			EventBase: m.event(domain.EventFlowStep, sessionID),
			FlowID:    p.FlowID,
			StepID:    p.StepID,
			StepIndex: p.StepIndex,
			StepCount: p.StepCount,
		})
	case reply.Card != nil && m.hooks.OnFlowCompleted != nil:
		m.hooks.OnFlowCompleted(ctx, &domain.FlowEvent{
			EventBase: m.event(domain.EventFlowCompleted, sessionID),
			FlowID:    reply.Card.FlowID,
			Reference: reply.Card.Reference,
		})
	}

	if reply.Record != nil && m.sink != nil {
		rec := *reply.Record
		rec.SessionID = sessionID
		if err := m.sink.Publish(ctx, rec); err != nil {
			m.logger.Error("Failed to publish record",
				"session_id", sessionID,
				"reference", rec.Reference,
				"err", err,
			)
		}
	}
}

func (m *Manager) turnAppended(ctx context.Context, sessionID string, turn domain.Turn) {
	if m.hooks.OnTurnAppended == nil {
		return
	}
	m.hooks.OnTurnAppended(ctx, &domain.TurnEvent{
		EventBase: m.event(domain.EventTurnAppended, sessionID),
		Turn:      turn,
	})
}

func (m *Manager) changed(ctx context.Context, before, after *domain.Conversation) {
	if m.onChange == nil {
		return
	}
	if diff := domain.DiffTranscript(before, after); diff != nil {
		m.onChange(ctx, diff)
	}
}

func (m *Manager) event(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: m.now(), Type: t, SessionID: sessionID}
}
