package opshttp

import (
	"net/http"

	"github.com/keithlinneman/folio/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe

	// AllowPublic disables the private-network guard (tests, sidecars).
	AllowPublic bool
	// OnPanic runs after a recovered handler panic.
	OnPanic func()
}
