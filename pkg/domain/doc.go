/*
Package domain contains the core domain models of the Concierge wizard engine.

It defines the conversation transcript (Turns), what the resolver emits (Prompts,
Cards and plain Text), the accumulated answer set (Draft) and the declarative shape
of a wizard (Flow and Step). This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Turn: One append-only entry in the transcript (user or assistant).
  - Prompt: The next step's request for input, computed fresh on every resolve.
  - Card: A read-only terminal summary that ends a flow.
  - Draft: The ordered answer set carried from step to step within one flow.
  - Conversation: The runtime snapshot of a session (Turns, Status).
  - Message: The typed envelope submitted to the resolver.
*/
package domain
