// pkg/electrician/relay_types.go
package electrician

import (
	"context"
	"time"
)

// RelayRequest is the byte-level publish envelope.
type RelayRequest struct {
	Topic   string
	Body    []byte
	Headers map[string]string
	Timeout time.Duration
}

// RelayClient is what the ledger event publisher needs from a relay.
type RelayClient interface {
	Publish(ctx context.Context, rr RelayRequest) error
	Enabled() bool
}
