// Package httpmw provides the HTTP middleware shared by the public listener.
//
// httpserver.NewHandler composes these outermost first: security headers,
// recover, request ID, client IP, rate limiting, tracing, content revision,
// metrics and request logging around the chi router.
//
// Query strings are logged; headers, user agents and bodies are not.
package httpmw
