package middleware

import "github.com/aretw0/concierge/pkg/ports"

// Middleware allows wrapping a ConversationStore to add behavior.
type Middleware func(ports.ConversationStore) ports.ConversationStore

// SinkMiddleware allows wrapping a RecordSink to add behavior.
type SinkMiddleware func(ports.RecordSink) ports.RecordSink

// Chain applies store middlewares so that the first one is the outermost.
func Chain(store ports.ConversationStore, mws ...Middleware) ports.ConversationStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// ChainSink applies sink middlewares so that the first one is the outermost.
func ChainSink(sink ports.RecordSink, mws ...SinkMiddleware) ports.RecordSink {
	for i := len(mws) - 1; i >= 0; i-- {
		sink = mws[i](sink)
	}
	return sink
}
