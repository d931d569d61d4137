/*
Package session owns conversations at runtime.

The Manager serializes access to each conversation with a ref-counted local lock
(plus an optional distributed lock for multiple replicas), appends user and
assistant turns around every resolve call, and enforces one submission in flight
per session.
*/
package session
