// Package audit implements async delivery of portal session events.
//
// # Components
//
//   - [Sink] is the consumer interface (channel, JSON lines, slog, no-op).
//   - [Dispatcher] is a buffered relay with drop-if-full or block-if-full
//     semantics.
//   - [Event] is the record: timestamp, type, user, navigation path, outcome.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. Which events exist and when
// they fire is decided by the Engine and the flow functions.
//
// # What this package must NOT do
//
//   - Carry tokens or passwords in events.
//   - Import goPortal or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
