// Package rate throttles portal login attempts with Redis-backed fixed-window
// counters.
//
// # Window semantics
//
// INCR plus an EXPIRE on the first hit of each window. Keys:
//   - <prefix>:rl:<email>  failed logins per account
//   - <prefix>:rli:<ip>    failed logins per client IP
//
// A successful login clears both counters.
//
// # What this package must NOT do
//
//   - Call the backend or touch session state.
//   - Be imported outside the goPortal module.
package rate
