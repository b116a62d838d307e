// Package router holds the portal route table and the navigation guard that
// runs before every route transition.
//
// # Guard decision
//
// [Decide] is a pure function of token presence and the target's resolved
// metadata. [Guard.BeforeEach] adds the single suspension point: when a token
// is present but no user is loaded it awaits one user fetch before deciding.
//
// # Metadata inheritance
//
// A route that does not declare RequiresAuth inherits it from the nearest
// ancestor that does. A child declaration always wins over its ancestors.
//
// # Architecture boundaries
//
// The router reads session state through [SessionSource] and never calls the
// backend API. It does NOT know about tokens beyond their presence.
//
// # What this package must NOT do
//
//   - Import goPortal (the Engine implements [SessionSource] and [Observer]).
//   - Grant or deny access on anything other than the RequiresAuth flag.
package router
