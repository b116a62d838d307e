// Package flows contains the orchestrators behind every session operation of
// the Engine.
//
// Each flow function (RunLogin, RunFetchUser, RunLogout) accepts a typed
// dependency struct and touches nothing beyond those dependencies. Session
// state itself stays with the Engine and is written through [SessionWriter].
//
// # Architecture boundaries
//
// Flow functions coordinate the API client, token storage, audit dispatch and
// metrics. They do NOT own any of these resources. Ownership stays with the
// Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goPortal (to avoid import cycles).
//   - Retry failed calls; every failure is handled exactly once.
package flows
