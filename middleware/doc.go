// Package middleware applies the portal navigation guard to HTTP requests.
//
// # Guards
//
//   - [GuardFunc] runs the navigation guard of the engine an [EngineFunc]
//     picks for the request and answers redirects with 302 Found.
//   - [RequireSessionFunc] rejects requests with 401 while that engine holds
//     no token.
//
// [Guard] and [RequireSession] wrap one engine shared by every client, which
// suits a single-operator deployment. Servers that sign clients in
// separately pick a per-client engine instead, usually keyed by a cookie.
//
// Allowed page requests carry the resolved [router.Location] and the picked
// engine in their context; read them with [LocationFromContext] and
// [EngineFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine and router calls. Guard
// rules live in the router package and session state in goPortal.Engine.
//
// # What this package must NOT do
//
//   - Call the backend API directly (the Engine does).
//   - Access Redis.
//   - Decide access beyond what router.Decide returns.
package middleware
