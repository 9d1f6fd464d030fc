package llm

import "context"

// Sender delivers a built request to the model service
type Sender interface {
	// Send performs one call and parses the family-specific response
	Send(ctx context.Context, spec *RequestSpec, family Family) Result
}

// Ensure Client implements Sender
var _ Sender = (*Client)(nil)
