// Package apiclient is the HTTP client for the portal backend API.
//
// It implements the three calls the session layer depends on:
//
//	POST /login  {email, password} -> {token, ...}
//	GET  /user   -> identity record
//	POST /logout -> (body ignored)
//
// Non-2xx responses become [*Error] values carrying the HTTP status and the
// optional server-provided {message} field.
//
// # Architecture boundaries
//
// The client is stateless: callers pass the bearer token explicitly. It does
// NOT store tokens, retry requests, or interpret session semantics.
package apiclient
