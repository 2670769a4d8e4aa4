package broker

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"visionguard/pkg/logging"
)

// ErrorKind is the broker's error taxonomy. It classifies failures rather
// than naming Go error types, so the same Kind can wrap different
// underlying causes (a registration conflict vs. a malformed handler both
// surface at register time, for instance, but with different Kinds).
type ErrorKind string

const (
	KindTypeAlreadyRegistered ErrorKind = "TYPE_ALREADY_REGISTERED"
	KindTypeNotRegistered     ErrorKind = "TYPE_NOT_REGISTERED"
	KindHandlerInterface      ErrorKind = "HANDLER_INTERFACE"
	KindValidationFailed      ErrorKind = "VALIDATION_FAILED"
	KindResolverTransient     ErrorKind = "RESOLVER_TRANSIENT"
	KindResolverFatal         ErrorKind = "RESOLVER_FATAL"
	KindSubscriberFailed      ErrorKind = "SUBSCRIBER_FAILED"
	KindCallbackInvalid       ErrorKind = "CALLBACK_INVALID"
	KindSubscriptionMissing   ErrorKind = "SUBSCRIPTION_MISSING"
	KindBrokerShutDown        ErrorKind = "BROKER_SHUT_DOWN"
)

// Error is the concrete error type carrying a Kind plus an optional wrapped
// cause. Registration and subscription calls return *Error synchronously;
// publish never does (failures there are reported through PublishResult).
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err, if err is or wraps a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

// ErrTransient is the distinguished sentinel a Repository implementation
// should wrap connectivity/timeout errors with, so the resolver's retry loop
// can tell a transient failure apart from a fatal one (spec §6's "the
// repository is expected to raise a distinguished transient error kind").
var ErrTransient = errors.New("transient repository error")

// IsTransient reports whether err is, or wraps, ErrTransient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// errorHandler centralizes C4's logging policy for the failure kinds the
// broker itself observes directly: validation and subscriber failures are
// each logged with a distinct shape but never re-raised to the publish
// caller. Resolver/database failure logging (the retry-attempt and
// retry-exhaustion halves of C4) is owned entirely by internal/resolver,
// which runs its own failsafe-go retry loop and fallback cache next to the
// repository calls it wraps — there is no broker-owned call site that
// observes a resolver failure mid-retry, only the final Cameras slice
// Resolve returns, so that logging has nothing to route through here.
type errorHandler struct {
	logger logging.Logger
}

func newErrorHandler(logger logging.Logger) *errorHandler {
	return &errorHandler{logger: logger}
}

func (h *errorHandler) logValidationFailure(messageType MessageType, errs []string) {
	h.logger.WithFields(logging.Fields{
		"kind":         KindValidationFailed,
		"message_type": messageType,
		"errors":       errs,
	}).Warn("validation failed")
}

func (h *errorHandler) logSubscriberFailure(messageType MessageType, subscriptionID uuid.UUID, messageID uuid.UUID, recovered interface{}) {
	h.logger.WithFields(logging.Fields{
		"kind":            KindSubscriberFailed,
		"message_type":    messageType,
		"subscription_id": subscriptionID,
		"message_id":      messageID,
	}).Errorf("subscriber callback failed: %v", recovered)
}
