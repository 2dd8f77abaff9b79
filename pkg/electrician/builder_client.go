package electrician

import (
	"context"
	"fmt"
)

type builderClient struct {
	start  error
	submit func(context.Context, []byte) error // captures wire.Submit
}

// Publish sends the event body into the wire; the forward relay drains it to
// the configured targets.
func (c *builderClient) Publish(ctx context.Context, rr RelayRequest) error {
	if rr.Topic == "" {
		return fmt.Errorf("relay: missing topic")
	}
	if c.start != nil {
		return c.start
	}
	if rr.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rr.Timeout)
		defer cancel()
	}
	return c.submit(ctx, rr.Body)
}

func (c *builderClient) Enabled() bool { return true }
