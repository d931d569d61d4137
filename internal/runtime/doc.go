// Package runtime resolves submitted messages into replies.
//
// The Resolver is the cascade: a typed or legacy form submission is matched to a
// flow and the first incomplete active step is prompted; a complete draft yields
// the terminal card; free text is routed by keyword; anything else gets the help
// text. LocalTransport wraps a resolver with the think delay and the timeout.
package runtime
