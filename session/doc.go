// Package session holds the portal session model and the persistence layer for
// the bearer token.
//
// # Model
//
// [State] is a snapshot of the in-memory session record (user, token, loading
// flag, last error). [Identity] is the decoded current-user payload and always
// carries a [Role].
//
// # Token persistence
//
// The token is the only persisted piece of session state. It lives under a
// single fixed key in a [TokenStorage]; [RedisTokenStorage] is the production
// implementation and [MemoryTokenStorage] backs tests and single-process use.
//
// # Architecture boundaries
//
// This package owns the model and storage only. It does NOT call the backend
// API, decide navigation, or mutate session state; those responsibilities
// belong to the Engine and the router package.
//
// # What this package must NOT do
//
//   - Import goPortal, apiclient, or router (no upward imports).
//   - Attach an expiry to the persisted token (no expiry handling).
//   - Log or expose token values.
package session
