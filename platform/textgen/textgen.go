// Package textgen provides the text-generation service client used by the
// classification stages. The service returns one structured JSON document per
// call; enum and range validation stays with the caller, the client only
// guarantees the response parses as JSON.
package textgen

import (
	"context"
	"encoding/json"
	"time"
)

// Request is one structured-output generation call.
type Request struct {
	// Instructions is the stage-specific instruction template.
	Instructions string
	// Input is the structured payload the call is grounded in. It is
	// marshalled to JSON and appended to the instructions.
	Input any
	// Timeout bounds the call. Zero means DefaultTimeout.
	Timeout time.Duration
}

const (
	// DefaultTimeout bounds Orient/Decide calls.
	DefaultTimeout = 45 * time.Second
	// SynthesisTimeout bounds the larger Act synthesis call.
	SynthesisTimeout = 90 * time.Second
)

// Generator issues structured-output calls to the text-generation service.
type Generator interface {
	// Generate performs one call and returns the raw JSON document. The
	// returned bytes are guaranteed to be valid JSON; nothing more.
	Generate(ctx context.Context, req Request) (json.RawMessage, error)

	// SmokeTest performs a minimal call to verify credentials and quota
	// before a stage fans out.
	SmokeTest(ctx context.Context) error
}
