// Package ratelimit is per-IP token-bucket middleware with background
// eviction of idle visitors.
//
// It is in-memory and per process. It caps what one address can cost a
// single instance and gives one log line per offender, and leaves
// distributed floods to upstream filtering.
package ratelimit
