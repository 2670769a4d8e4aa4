package streamadapter

import (
	"context"

	"visionguard/internal/broker"
	"visionguard/internal/resolver"
	"visionguard/pkg/logging"
)

// Adapter is just another broker subscriber: it registers one callback per
// known message type, forwards each ProcessedMessage to the hub as a JSON
// envelope, and — on Start — asks the Resolver for a one-shot snapshot to
// seed downstream clients with the current routing state. Per spec.md
// §4.8/§7, a failure here never causes publish to fail; it is isolated by
// the broker's own subscriber error-isolation policy like any other
// subscriber.
type Adapter struct {
	hub      *Hub
	br       *broker.Broker
	resolver *resolver.Resolver
	logger   logging.Logger
}

// New wires an Adapter against an already-constructed broker and resolver.
// The caller is responsible for starting the HTTP server that routes to
// Hub().ServeWS.
func New(br *broker.Broker, res *resolver.Resolver, logger logging.Logger) *Adapter {
	return &Adapter{
		hub:      NewHub(logger),
		br:       br,
		resolver: res,
		logger:   logger,
	}
}

// Hub exposes the underlying WebSocket hub so cmd/visiond can route an HTTP
// handler to Hub().ServeWS and start Hub().Run in its own goroutine.
func (a *Adapter) Hub() *Hub {
	return a.hub
}

// Start subscribes to every message type currently registered on the
// broker and publishes an initial current_state envelope from the
// resolver's live routing state. It does not start the hub's dispatch
// loop — call Hub().Run in a goroutine alongside Start.
func (a *Adapter) Start(ctx context.Context) error {
	for _, t := range a.br.ListTypes() {
		msgType := t
		if _, err := a.br.Subscribe(msgType, a.forward); err != nil {
			return err
		}
	}

	state := a.resolver.CurrentState(ctx)
	a.hub.Broadcast(newCurrentStateEnvelope(state))

	return nil
}

func (a *Adapter) forward(msg broker.ProcessedMessage) {
	a.hub.Broadcast(newEnvelope(msg))
}
