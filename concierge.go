package concierge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/concierge/internal/flows"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/registry"
	"github.com/aretw0/concierge/pkg/session"
)

// Assistant is the high-level entry point of the library.
// It wires the flow catalog, the resolver and the session manager.
type Assistant struct {
	catalog  *registry.Registry
	resolver ports.Resolver
	manager  *session.Manager

	store      ports.ConversationStore
	sink       ports.RecordSink
	locker     ports.DistributedLocker
	extra      []domain.Flow
	hooks      domain.LifecycleHooks
	onChange   session.ChangeFunc
	latency    time.Duration
	timeout    time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
}

// Option configures the Assistant.
type Option func(*Assistant)

// WithStore sets the conversation store (default: in-memory).
func WithStore(store ports.ConversationStore) Option {
	return func(a *Assistant) {
		a.store = store
	}
}

// WithSink publishes the record of every completed flow.
func WithSink(sink ports.RecordSink) Option {
	return func(a *Assistant) {
		a.sink = sink
	}
}

// WithLocker enables distributed session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(a *Assistant) {
		a.locker = locker
	}
}

// WithFlows adds flows to the built-in catalog. A flow with a built-in ID replaces it.
func WithFlows(fs ...domain.Flow) Option {
	return func(a *Assistant) {
		a.extra = append(a.extra, fs...)
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Assistant) {
		a.hooks = hooks
	}
}

// WithChangeListener receives the transcript diff of every persisted change.
func WithChangeListener(fn session.ChangeFunc) Option {
	return func(a *Assistant) {
		a.onChange = fn
	}
}

// WithThinkLatency sets the simulated delay before each reply. Zero disables it.
func WithThinkLatency(d time.Duration) Option {
	return func(a *Assistant) {
		a.latency = d
	}
}

// WithResolveTimeout bounds every resolve call. Zero disables it.
func WithResolveTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		a.timeout = d
	}
}

// WithStaleAfter sets how long a session may stay Waiting before it is recovered.
// It defaults to twice the resolve timeout, so disabling the timeout disables recovery.
func WithStaleAfter(d time.Duration) Option {
	return func(a *Assistant) {
		a.staleAfter = d
	}
}

// WithResolver replaces the local resolver, e.g. with a remote backend client.
// The think latency and timeout still apply.
func WithResolver(r ports.Resolver) Option {
	return func(a *Assistant) {
		a.resolver = r
	}
}

// New builds an Assistant over the built-in flow catalog.
func New(opts ...Option) (*Assistant, error) {
	a := &Assistant{
		latency: runtime.DefaultThinkLatency,
		timeout: runtime.DefaultResolveTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	if a.staleAfter == 0 {
		a.staleAfter = 2 * a.timeout
	}

	catalog, err := registry.NewRegistry(flows.Catalog()...)
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	for _, f := range a.extra {
		if err := catalog.Register(f); err != nil {
			return nil, err
		}
	}
	a.catalog = catalog

	if a.resolver == nil {
		a.resolver = runtime.NewResolver(catalog,
			runtime.WithHelp(flows.Help),
			runtime.WithResolverLogger(a.logger),
		)
	}
	transport := runtime.NewLocalTransport(a.resolver,
		runtime.WithLatency(a.latency),
		runtime.WithTimeout(a.timeout),
		runtime.WithTransportLogger(a.logger),
	)

	mopts := []session.Option{
		session.WithCatalog(catalog),
		session.WithHooks(a.hooks),
		session.WithStaleAfter(a.staleAfter),
		session.WithLogger(a.logger),
	}
	if a.sink != nil {
		mopts = append(mopts, session.WithSink(a.sink))
	}
	if a.locker != nil {
		mopts = append(mopts, session.WithLocker(a.locker))
	}
	if a.onChange != nil {
		mopts = append(mopts, session.WithChangeListener(a.onChange))
	}
	a.manager = session.NewManager(a.store, transport, mopts...)
	return a, nil
}

// Manager exposes the session manager for adapters (HTTP, MCP).
func (a *Assistant) Manager() *session.Manager {
	return a.manager
}

// Catalog returns the flow catalog.
func (a *Assistant) Catalog() *registry.Registry {
	return a.catalog
}

// Open returns the session with the given ID, starting it if it does not exist.
func (a *Assistant) Open(ctx context.Context, id string) (*Session, error) {
	if _, err := a.manager.LoadOrStart(ctx, id); err != nil {
		return nil, err
	}
	return &Session{ID: id, manager: a.manager}, nil
}

// NewSession starts a session under a fresh ID.
func (a *Assistant) NewSession(ctx context.Context) (*Session, error) {
	return a.Open(ctx, NewSessionID())
}

// NewSessionID returns a random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// Session is a handle on one conversation.
type Session struct {
	ID      string
	manager *session.Manager
}

// SubmitText sends a free-text message and returns the assistant reply.
func (s *Session) SubmitText(ctx context.Context, text string) (domain.Turn, error) {
	return s.manager.SubmitText(ctx, s.ID, text)
}

// SubmitForm submits form values explicitly.
func (s *Session) SubmitForm(ctx context.Context, sub domain.FormSubmission) (domain.Turn, error) {
	return s.manager.SubmitForm(ctx, s.ID, sub)
}

// Answer submits values for the form carried by an earlier assistant turn.
func (s *Session) Answer(ctx context.Context, promptTurnID int64, values domain.Draft) (domain.Turn, error) {
	return s.manager.Answer(ctx, s.ID, promptTurnID, values)
}

// Turns returns the transcript.
func (s *Session) Turns(ctx context.Context) ([]domain.Turn, error) {
	return s.manager.Turns(ctx, s.ID)
}

// Busy reports whether a reply is pending.
func (s *Session) Busy(ctx context.Context) (bool, error) {
	return s.manager.Busy(ctx, s.ID)
}

// Delete removes the conversation.
func (s *Session) Delete(ctx context.Context) error {
	return s.manager.Delete(ctx, s.ID)
}
