// Package auth establishes the caller identity for admin routes.
//
// A request moves from unverified to authenticated or rejected exactly
// once: Gate.Authenticate verifies the bearer token and stores the User in
// the context, or answers 401 without calling the wrapped handler.
// Gate.RequireRole then answers 403 when the established role does not
// match. Nothing here retries or refreshes sessions.
package auth
