// pkg/electrician/relay_noop.go
package electrician

import "context"

// NoopRelay accepts publishes and discards them. It is used when no
// ELECTRICIAN_TARGET is configured.
type NoopRelay struct{}

func (NoopRelay) Publish(context.Context, RelayRequest) error { return nil }
func (NoopRelay) Enabled() bool                               { return false }
