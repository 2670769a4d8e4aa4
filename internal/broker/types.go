// Package broker implements the process-wide typed publish/subscribe
// broker: type registry, subscription fan-out, statistics, and the
// broker facade itself. Camera routing lives in the sibling resolver
// package; handlers live in the sibling handlers package.
package broker

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies a registered message family, e.g. "direction_result".
type MessageType string

const maxMessageTypeLen = 64

// Payload is the opaque, handler-interpreted body of a published message.
type Payload map[string]interface{}

// ValidationResult is returned by a Handler's Validate step.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Invalid constructs a failing ValidationResult from one or more error strings.
func Invalid(errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// Valid constructs a passing ValidationResult, optionally carrying warnings.
func Valid(warnings ...string) ValidationResult {
	return ValidationResult{Valid: true, Warnings: warnings}
}

// MessageData is the normalized, in-flight message. It is assembled once at
// the entry of processing (message id and timestamp are stamped by the
// broker) and never mutated afterward.
type MessageData struct {
	MessageID    uuid.UUID
	Type         MessageType
	Data         Payload
	Timestamp    time.Time
	ProducerHint string
}

// Camera is the subset of camera attributes the broker core touches. Tagged
// per spec.md §6's streaming envelope shape, since this struct is what
// internal/streamadapter marshals directly onto the wire.
type Camera struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Status     string   `json:"status"` // "online" | "offline"
	Directions []string `json:"directions"`
}

// AngleRange binds a half-open degree interval [MinAngle, MaxAngle) to a set
// of camera ids. 0 <= MinAngle < MaxAngle <= 360 is enforced by whatever
// creates ranges upstream of the broker; the resolver trusts it. Tagged per
// spec.md §6's current_state envelope shape.
type AngleRange struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MinAngle  float64  `json:"min_angle"`
	MaxAngle  float64  `json:"max_angle"`
	Enabled   bool     `json:"enabled"`
	CameraIDs []string `json:"camera_ids"`
}

// ProcessedMessage is the validated, normalized, camera-resolved event
// delivered to subscribers.
type ProcessedMessage struct {
	Original         MessageData
	Validated        bool
	Cameras          []Camera
	ProcessingTimeMs float64
	Errors           []string
}

// Callback is the capability a subscriber registers: invoked once per
// publish to the type it is subscribed to, after camera resolution.
type Callback func(ProcessedMessage)

// SubscriptionInfo is a single entry in the Subscription Registry. The
// broker owns the record; the caller holds SubscriptionID to unsubscribe.
type SubscriptionInfo struct {
	SubscriptionID uuid.UUID
	Type           MessageType
	Callback       Callback
	CreatedAt      time.Time
}

// PublishResult is the only channel through which publish callers observe
// outcome; subscriber and resolver failures never surface as an error here.
type PublishResult struct {
	Success             bool
	MessageID           uuid.UUID
	SubscribersNotified int
	SubscribersFailed   int
	Errors              []string
	DurationMs          float64
}

// Handler is the per-type validation+normalization capability contract.
// Implementations are stateless with respect to individual messages but may
// hold configuration (e.g. an allowed command set).
//
// Process returns the normalized payload only; the broker itself stamps
// MessageID/Timestamp and assembles MessageData, so MessageData construction
// stays a single, broker-owned step regardless of which handler ran.
type Handler interface {
	TypeName() MessageType
	Validate(payload Payload) ValidationResult
	Process(payload Payload) (Payload, error)
}

// HasInterface reports whether h is non-nil and satisfies Handler. Used when
// a handler arrives from a dynamic source (e.g. a plugin registry) where the
// compiler cannot check conformance at the call site.
func HasInterface(h Handler) bool {
	return h != nil
}
