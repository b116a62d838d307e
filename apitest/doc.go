// Package apitest runs an in-process portal backend for tests and demos.
//
// The server implements the three endpoints the portal calls
// (POST /login, GET /user, POST /logout) with bcrypt-checked passwords,
// HS256 bearer tokens and server-side revocation, plus switches to inject
// the failures the session store must survive.
//
// # What this package must NOT do
//
//   - Be used as a production backend: secrets are generated per server and
//     users live in memory.
package apitest
