package broker

import (
	"fmt"
	"sync"
)

// typeRegistry is C1: the set of registered message types, each bound to a
// Handler. A single mutex guards it; readers copy out the handler reference
// before releasing the lock so validate/process run outside the lock.
type typeRegistry struct {
	mu       sync.Mutex
	handlers map[MessageType]Handler
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{handlers: make(map[MessageType]Handler)}
}

func validateMessageType(t MessageType) error {
	if len(t) == 0 {
		return newError(KindHandlerInterface, "message type must be non-empty")
	}
	if len(t) > maxMessageTypeLen {
		return newError(KindHandlerInterface, fmt.Sprintf("message type exceeds %d characters", maxMessageTypeLen))
	}
	for _, r := range t {
		if r > 127 {
			return newError(KindHandlerInterface, "message type must be ASCII")
		}
	}
	return nil
}

// register binds handler to t. Fails TYPE_ALREADY_REGISTERED if t exists and
// allowOverride is false; fails HANDLER_INTERFACE if handler is nil, doesn't
// conform to Handler, or t is malformed. Overriding preserves whatever
// subscriber list the subscription registry already holds for t — this
// function touches only the type->handler map.
func (r *typeRegistry) register(t MessageType, handler Handler, allowOverride bool) error {
	if err := validateMessageType(t); err != nil {
		return err
	}
	if !HasInterface(handler) {
		return newError(KindHandlerInterface, "handler does not implement validate/process/type_name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[t]; exists && !allowOverride {
		return newError(KindTypeAlreadyRegistered, string(t))
	}
	r.handlers[t] = handler
	return nil
}

// unregister clears the handler for t. The subscriber list is untouched —
// it lives in the subscription registry, which has no notion of whether a
// type is currently registered.
func (r *typeRegistry) unregister(t MessageType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[t]; !exists {
		return false
	}
	delete(r.handlers, t)
	return true
}

func (r *typeRegistry) isRegistered(t MessageType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.handlers[t]
	return exists
}

// getHandler returns the handler bound to t, copied out while the lock is
// held so the caller can call Validate/Process without holding the registry
// lock.
func (r *typeRegistry) getHandler(t MessageType) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, exists := r.handlers[t]
	return h, exists
}

func (r *typeRegistry) listTypes() []MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]MessageType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
