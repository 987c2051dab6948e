// Package quasar is an in-memory, GPU-resident columnar data engine.
//
// The engine stores tables as trees of exclusively-owned, device-resident
// columns (pkg/column) allocated on ordered execution streams (pkg/device).
// Its interop layer (pkg/interop) exports columns and tables zero-copy into
// a standardized device-array interchange tree: buffer ownership moves into
// release closures held by the consumer, and a stream completion token lets
// consumers on other execution contexts order their reads against
// still-in-flight producer work.
//
// Supporting packages follow the same layout as the rest of the project:
// pkg/config for the unified configuration system, pkg/logger and
// pkg/errors for structured logging and errors, pkg/metrics and
// pkg/observability for Prometheus metrics and OpenTelemetry tracing, and
// pkg/pool for the bucketed allocation pools behind the pooled device
// allocator.
package quasar
