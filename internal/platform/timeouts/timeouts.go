// Package timeouts defines shared timeout constants used across prep
// commands so storage, HTTP, and agent boundaries stay in step.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StorageCall caps a single object storage or document store round trip.
const StorageCall = 15 * time.Second

// AgentLaunch caps how long a start or stop launcher script may run.
const AgentLaunch = 30 * time.Second

// GitStep caps a single git invocation during commit and push.
const GitStep = 60 * time.Second

// Diag caps the full diagnostics probe.
const Diag = 10 * time.Second
