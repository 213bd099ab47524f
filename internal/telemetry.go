package internal

import (
	"context"
	"sync"
)

// telemetry.go
// Lightweight telemetry hook layer used by the query accelerator.
// This file exposes simple emitter functions the rest of the codebase can call.
// The implementation is intentionally minimal: callers may register a real metrics emitter
// (or a test stub) via RegisterTelemetryEmitter. By default the emitter is a no-op,
// avoiding any hard dependency on a metrics backend in this module.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterTelemetryEmitter registers a custom emitter function. Callers (e.g. service
// wiring) can provide a real metrics-backed emitter or a test meter.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emit(ctx context.Context, name string, labels map[string]string, value any) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	fn(ctx, name, labels, value)
}

// EmitDecision records which controller action was taken for a predicate key.
// name: "sma_controller_decision_total" with label {"action": "skip"|"outlier_read"|...}
func EmitDecision(ctx context.Context, action string) {
	emit(ctx, "sma_controller_decision_total", map[string]string{"action": action}, int64(1))
}

// EmitScanLatency records the duration, in milliseconds, of a backend scan stage.
// name: "sma_scan_latency_ms" with label {"stage": "build"|"fallback_scan"}
func EmitScanLatency(ctx context.Context, stage string, ms int64) {
	emit(ctx, "sma_scan_latency_ms", map[string]string{"stage": stage}, ms)
}

// EmitBudget records a predicate key's budget after a query settles.
// name: "sma_predicate_budget" with label {"key": "<predicate key>"}
func EmitBudget(ctx context.Context, key string, budget float64) {
	emit(ctx, "sma_predicate_budget", map[string]string{"key": key}, budget)
}

// EmitEviction records that an SMA artifact was evicted, and why.
// name: "sma_eviction_total" with label {"reason": "budget_exhausted"|"stale"|"unused"}
func EmitEviction(ctx context.Context, reason string) {
	emit(ctx, "sma_eviction_total", map[string]string{"reason": reason}, int64(1))
}
