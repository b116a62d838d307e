// Package internal groups helpers that are private to goPortal.
//
// # Sub-packages
//
//   - audit - async event dispatch (Dispatcher + Sink implementations)
//   - confloader - koanf-based CLI configuration layering
//   - flows - pure-function orchestrators for Login, FetchUser and Logout
//   - rate - Redis-backed login attempt throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public goPortal API.
//   - Be imported by any package outside the goPortal module.
package internal
