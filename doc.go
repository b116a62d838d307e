// Package goPortal is the session and navigation core of the staff portal:
// a session store wrapping the backend's login, current-user and logout
// calls, and a navigation guard that keeps anonymous visitors off protected
// routes and signed-in visitors off the login page.
//
// The store persists the bearer token under one fixed key through a
// [session.TokenStorage] (Redis in production) and restores it once in
// [Builder.Build]. Methods on [Engine] are safe to call from multiple
// goroutines; overlapping operations are not serialized.
//
// # Architecture boundaries
//
// goPortal is the public surface: [Engine], [Builder], [Config], metrics and
// audit types. Flow orchestration lives in internal/flows, audit delivery in
// internal/audit. Route matching and guard rules live in the router package,
// which knows nothing about HTTP or Redis.
//
// # What this package must NOT do
//
//   - Log, audit or export token values or passwords.
//   - Retry backend calls or refresh tokens.
//   - Perform I/O outside Engine methods and Builder.Build.
//   - Import any sub-package that re-imports goPortal (no import cycles).
package goPortal
