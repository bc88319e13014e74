package domain

import "time"

// Request represents one inbound invocation request, already parsed by the
// ingress layer: a logical service, an operation name, and the decoded JSON
// body.
type Request struct {
	Service   string
	Operation string
	Document  any // must be a JSON object (map[string]any) to bind
}

// Response represents the outcome of an invocation
type Response struct {
	Result   any // JSON-serializable return value, nil for void operations
	Err      error
	Duration time.Duration
}
