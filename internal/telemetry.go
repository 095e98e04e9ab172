package internal

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// telemetry.go
// Telemetry hooks for detection and cache construction. The default emitter is a no-op;
// service wiring or tests may register their own via RegisterTelemetryEmitter.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterTelemetryEmitter registers a custom emitter function. nil restores the no-op emitter.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emitter() telemetryEmitter {
	teleMu.Lock()
	defer teleMu.Unlock()
	return teleImpl
}

// EmitDetection records the latency (milliseconds) of one detection call.
// name: "storage_detect_latency_ms" with label {"outcome": "<detected|unrecognized|failed|error>"}
func EmitDetection(ctx context.Context, outcome string, elapsed time.Duration) {
	labels := map[string]string{"outcome": outcome}
	emitter()(ctx, "storage_detect_latency_ms", labels, elapsed.Milliseconds())
}

// EmitCacheBuild records the entry counts of a freshly built filter cache.
// name: "filter_cache_entries" with labels {"source": "<configuration|builtin>", "direction": "<import|export>"}
func EmitCacheBuild(ctx context.Context, source string, imports, exports int) {
	fn := emitter()
	fn(ctx, "filter_cache_entries", map[string]string{"source": source, "direction": "import"}, int64(imports))
	fn(ctx, "filter_cache_entries", map[string]string{"source": source, "direction": "export"}, int64(exports))
}

// EmitCacheReload records a cache reload and whether it succeeded.
// name: "filter_cache_reload" with label {"ok": "true"|"false"}
func EmitCacheReload(ctx context.Context, ok bool) {
	emitter()(ctx, "filter_cache_reload", map[string]string{"ok": strconv.FormatBool(ok)}, int64(1))
}
