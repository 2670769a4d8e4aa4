package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"visionguard/pkg/logging"
)

// CameraResolver is C3's contract as seen by the Broker: given a processed
// message, return the cameras it should activate. Resolve never returns an
// error — retry, cache fallback, and the RESOLVER_FATAL empty-set fallback
// all happen inside the resolver itself (spec: "never raises to caller").
type CameraResolver interface {
	Resolve(ctx context.Context, msg MessageData) []Camera
}

type noopResolver struct{}

func (noopResolver) Resolve(context.Context, MessageData) []Camera { return nil }

// Broker is C6, the process-singleton façade composing the type registry,
// the subscription registry, the resolver, the error handler, and
// statistics.
type Broker struct {
	registry *typeRegistry
	subs     *subscriptionRegistry
	stats    *brokerStats
	errs     *errorHandler
	logger   logging.Logger

	resolverMu sync.RWMutex
	resolver   CameraResolver

	allowOverrideDefault bool
	shutDown             atomic.Bool
}

// New constructs a Broker and registers the given built-in handlers. It is
// exported for tests; other code, cmd/visiond included, goes through
// Instance so the process holds exactly one Broker.
//
// builtins are registered eagerly: a failure here means the broker refuses
// to become ready, so New returns the first registration error encountered.
func New(logger logging.Logger, allowOverrideDefault bool, builtins map[MessageType]Handler) (*Broker, error) {
	b := &Broker{
		registry:             newTypeRegistry(),
		subs:                 newSubscriptionRegistry(),
		stats:                newBrokerStats(),
		errs:                 newErrorHandler(logger),
		logger:               logger,
		resolver:             noopResolver{},
		allowOverrideDefault: allowOverrideDefault,
	}

	for t, h := range builtins {
		if err := b.registry.register(t, h, false); err != nil {
			return nil, err
		}
	}

	return b, nil
}

var (
	instance     *Broker
	instanceOnce sync.Once
)

// Instance returns the process-wide Broker, constructing it on first call
// with the supplied logger and built-in handlers. Subsequent calls ignore
// their arguments and return the existing instance — this mirrors the
// teacher's package-level singleton accessors (e.g. pkg/config's cached
// env loading) generalized to a guarded constructor.
//
// Bootstrap failure is fatal: a broker that can't register its built-in
// types cannot serve any publish, so construction failure logs and exits
// rather than returning a half-usable Broker.
func Instance(logger logging.Logger, allowOverrideDefault bool, builtins map[MessageType]Handler) *Broker {
	instanceOnce.Do(func() {
		b, err := New(logger, allowOverrideDefault, builtins)
		if err != nil {
			logger.WithError(err).Fatal("broker bootstrap failed")
		}
		instance = b
	})
	return instance
}

// SetResolver installs the Camera Resolver used by Publish. Safe to call
// concurrently with Publish; takes effect for any publish that reads it
// after the call returns.
func (b *Broker) SetResolver(r CameraResolver) {
	if r == nil {
		r = noopResolver{}
	}
	b.resolverMu.Lock()
	b.resolver = r
	b.resolverMu.Unlock()
}

func (b *Broker) currentResolver() CameraResolver {
	b.resolverMu.RLock()
	defer b.resolverMu.RUnlock()
	return b.resolver
}

// RegisterMessageType binds handler to t. allowOverride lets a caller
// re-register an existing type in place, preserving its subscriber list.
func (b *Broker) RegisterMessageType(t MessageType, handler Handler, allowOverride bool) error {
	if b.shutDown.Load() {
		return newError(KindBrokerShutDown, "broker is shut down")
	}
	return b.registry.register(t, handler, allowOverride || b.allowOverrideDefault)
}

// UnregisterMessageType clears t's handler. The subscriber list is
// retained; publishes to t fail TYPE_NOT_REGISTERED until re-registered.
func (b *Broker) UnregisterMessageType(t MessageType) bool {
	return b.registry.unregister(t)
}

// Subscribe registers cb for t, returning a subscription id to pass to
// Unsubscribe. Fails TYPE_NOT_REGISTERED if t has no current handler,
// CALLBACK_INVALID if cb is nil.
func (b *Broker) Subscribe(t MessageType, cb Callback) (uuid.UUID, error) {
	if b.shutDown.Load() {
		return uuid.Nil, newError(KindBrokerShutDown, "broker is shut down")
	}
	if !b.registry.isRegistered(t) {
		return uuid.Nil, newError(KindTypeNotRegistered, string(t))
	}
	return b.subs.subscribe(t, cb)
}

// Unsubscribe removes the subscription id from t. Idempotent: a second call
// with the same arguments returns false.
func (b *Broker) Unsubscribe(t MessageType, id uuid.UUID) bool {
	return b.subs.unsubscribe(t, id)
}

// IsTypeRegistered, ListTypes, SubscriberCount, and Stats are introspection
// operations; none mutate state.
func (b *Broker) IsTypeRegistered(t MessageType) bool { return b.registry.isRegistered(t) }

func (b *Broker) ListTypes() []MessageType { return b.registry.listTypes() }

// SubscriberCount returns the subscriber count for t, or the total count
// across every type when t is the empty string.
func (b *Broker) SubscriberCount(t MessageType) int {
	if t == "" {
		return b.subs.total()
	}
	return b.subs.count(t)
}

func (b *Broker) Stats() StatsSnapshot {
	return b.stats.snapshot(b.subs)
}

// Publish runs the full validate -> process -> resolve -> fan-out pipeline
// for one message and returns a PublishResult. It never panics and never
// returns an error: every failure mode — registration, validation,
// resolver, subscriber — is expressed as a field of the result or (for
// subscriber/resolver failures) only as a log entry, per spec.
func (b *Broker) Publish(ctx context.Context, t MessageType, payload Payload) PublishResult {
	messageID := uuid.New()
	tStart := time.Now()

	b.stats.recordPublish()

	if b.shutDown.Load() {
		b.stats.recordFailure()
		return PublishResult{
			Success:   false,
			MessageID: messageID,
			Errors:    []string{newError(KindBrokerShutDown, "broker is shut down").Error()},
		}
	}

	handler, ok := b.registry.getHandler(t)
	if !ok {
		b.stats.recordFailure()
		return PublishResult{
			Success:   false,
			MessageID: messageID,
			Errors:    []string{newError(KindTypeNotRegistered, string(t)).Error()},
		}
	}

	validation := handler.Validate(payload)
	if !validation.Valid || len(validation.Errors) > 0 {
		b.errs.logValidationFailure(t, validation.Errors)
		b.stats.recordFailure()
		errs := validation.Errors
		if len(errs) == 0 {
			errs = []string{"validation failed"}
		}
		return PublishResult{
			Success:    false,
			MessageID:  messageID,
			Errors:     errs,
			DurationMs: msSince(tStart),
		}
	}

	normalized, err := handler.Process(payload)
	if err != nil {
		b.errs.logValidationFailure(t, []string{err.Error()})
		b.stats.recordFailure()
		return PublishResult{
			Success:    false,
			MessageID:  messageID,
			Errors:     []string{err.Error()},
			DurationMs: msSince(tStart),
		}
	}

	msg := MessageData{
		MessageID:    messageID,
		Type:         t,
		Data:         normalized,
		Timestamp:    time.Now(),
		ProducerHint: stringField(payload, "producer_hint"),
	}

	cameras := b.currentResolver().Resolve(ctx, msg)

	processed := ProcessedMessage{
		Original:         msg,
		Validated:        true,
		Cameras:          cameras,
		ProcessingTimeMs: msSince(tStart),
	}

	snapshot := b.subs.snapshot(t)

	notified, failed := b.fanOut(t, messageID, snapshot, processed)

	b.stats.recordSuccess()

	return PublishResult{
		Success:             true,
		MessageID:            messageID,
		SubscribersNotified:  notified,
		SubscribersFailed:    failed,
		DurationMs:           msSince(tStart),
	}
}

// fanOut invokes every subscriber's callback in order, isolating panics so
// one failing subscriber never prevents the rest from being notified.
func (b *Broker) fanOut(t MessageType, messageID uuid.UUID, snapshot []SubscriptionInfo, processed ProcessedMessage) (notified, failed int) {
	for _, sub := range snapshot {
		if b.invokeOne(t, messageID, sub, processed) {
			notified++
		} else {
			failed++
		}
	}
	return notified, failed
}

func (b *Broker) invokeOne(t MessageType, messageID uuid.UUID, sub SubscriptionInfo, processed ProcessedMessage) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.errs.logSubscriberFailure(t, sub.SubscriptionID, messageID, r)
			ok = false
		}
	}()
	sub.Callback(processed)
	return true
}

// Shutdown clears subscribers, drops the resolver, and marks the broker
// terminated. Further Publish/Subscribe calls fail BROKER_SHUT_DOWN.
// Callable at most once per lifetime; subsequent calls are no-ops.
func (b *Broker) Shutdown() {
	if !b.shutDown.CompareAndSwap(false, true) {
		return
	}
	b.subs.clear()
	b.SetResolver(nil)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func stringField(p Payload, key string) string {
	if p == nil {
		return ""
	}
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
