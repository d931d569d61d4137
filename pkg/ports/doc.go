/*
Package ports defines the driven ports (interfaces) for the Concierge engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, record outboxes and resolver
transports.

# Key Interfaces

  - Resolver: Turns a submitted message into the next reply (local cascade or a remote backend).
  - FlowCatalog: Read access to the registered flows.
  - ConversationStore: Keeps session transcripts (memory, file, SQLite, Redis).
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - RecordSink: Receives the confirmation record of completed flows.
*/
package ports
