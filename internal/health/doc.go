// Package health composes liveness and readiness probes and serves them
// as /-/healthy and /-/ready on both listeners.
//
// A nil error from Check means healthy. Readiness in folio is the
// shutdown gate, the content directory and, when configured, the
// database ping.
package health
