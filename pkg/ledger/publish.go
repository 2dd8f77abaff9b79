package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/joeydtaylor/steeze-gateway/pkg/codec"
	"github.com/joeydtaylor/steeze-gateway/pkg/electrician"
	"github.com/joeydtaylor/steeze-gateway/pkg/inventory"
	"go.uber.org/zap"
)

// TxEventTopic is the relay topic for committed writes.
const TxEventTopic = "gateway.tx"

// TxEvent announces one successful write invocation.
type TxEvent struct {
	ID        string          `json:"id"`
	Service   string          `json:"service"`
	Namespace string          `json:"namespace"`
	Resource  string          `json:"resource"`
	Operation string          `json:"operation"`
	Identity  string          `json:"identity"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    any             `json:"result,omitempty"`
	At        time.Time       `json:"at"`
}

// Publishing wraps an Executor and emits a TxEvent through the relay after
// every successful write. Publish failures are logged and never fail the call.
type Publishing struct {
	next    Executor
	relay   electrician.RelayClient
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewPublishing(next Executor, relay electrician.RelayClient, log *zap.Logger) *Publishing {
	if log == nil {
		log = zap.NewNop()
	}
	if relay == nil {
		relay = electrician.NoopRelay{}
	}
	return &Publishing{next: next, relay: relay, log: log, timeout: 5 * time.Second, now: time.Now}
}

func (p *Publishing) Invoke(ctx context.Context, svc inventory.Service, caller string, params json.RawMessage) (any, error) {
	out, err := p.next.Invoke(ctx, svc, caller, params)
	if err != nil || svc.Mode != inventory.ModeWrite || !p.relay.Enabled() {
		return out, err
	}

	ev := TxEvent{
		ID:        uuid.NewString(),
		Service:   svc.Name,
		Namespace: string(svc.Namespace),
		Resource:  svc.Resource,
		Operation: svc.Operation,
		Identity:  caller,
		Params:    params,
		Result:    out,
		At:        p.now().UTC(),
	}
	b, mErr := codec.JSON.Marshal(ev)
	if mErr != nil {
		p.log.Error("tx event encode failed", zap.String("service", svc.Name), zap.Error(mErr))
		return out, nil
	}
	if pErr := p.relay.Publish(ctx, electrician.RelayRequest{
		Topic:   TxEventTopic,
		Body:    b,
		Headers: map[string]string{"event-id": ev.ID, "service": svc.Name},
		Timeout: p.timeout,
	}); pErr != nil {
		p.log.Warn("tx event publish failed", zap.String("event", ev.ID), zap.String("service", svc.Name), zap.Error(pErr))
	}
	return out, nil
}
