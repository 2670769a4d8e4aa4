package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// subscriptionRegistry is C5: a per-type ordered sequence of
// SubscriptionInfo, insertion-ordered. Fan-out snapshots the slice under
// lock and releases before invoking any callback, matching the teacher's
// hub pattern of copying a client map before broadcasting.
type subscriptionRegistry struct {
	mu   sync.Mutex
	subs map[MessageType][]SubscriptionInfo
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{subs: make(map[MessageType][]SubscriptionInfo)}
}

// subscribe appends a new SubscriptionInfo for t and returns its id.
// Whether t is registered is the caller's (the Broker's) concern — the
// subscription registry only enforces that the callback itself is usable.
func (r *subscriptionRegistry) subscribe(t MessageType, cb Callback) (uuid.UUID, error) {
	if cb == nil {
		return uuid.Nil, newError(KindCallbackInvalid, "callback must not be nil")
	}

	info := SubscriptionInfo{
		SubscriptionID: uuid.New(),
		Type:           t,
		Callback:       cb,
		CreatedAt:      time.Now(),
	}

	r.mu.Lock()
	r.subs[t] = append(r.subs[t], info)
	r.mu.Unlock()

	return info.SubscriptionID, nil
}

// unsubscribe removes the subscription with id from t's list. Idempotent:
// removing an id that isn't present returns false without error.
func (r *subscriptionRegistry) unsubscribe(t MessageType, id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[t]
	for i, s := range list {
		if s.SubscriptionID == id {
			r.subs[t] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns an immutable shallow copy of t's current subscriber
// list, safe to iterate after the lock is released.
func (r *subscriptionRegistry) snapshot(t MessageType) []SubscriptionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[t]
	out := make([]SubscriptionInfo, len(list))
	copy(out, list)
	return out
}

// count returns the number of subscribers for t.
func (r *subscriptionRegistry) count(t MessageType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[t])
}

// total returns the number of subscribers across all types.
func (r *subscriptionRegistry) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, list := range r.subs {
		n += len(list)
	}
	return n
}

// countByType returns a snapshot of subscriber counts for every type that
// currently has at least one subscriber.
func (r *subscriptionRegistry) countByType() map[MessageType]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[MessageType]int, len(r.subs))
	for t, list := range r.subs {
		if len(list) > 0 {
			out[t] = len(list)
		}
	}
	return out
}

// clear drops every subscription for every type, used by Broker.Shutdown.
func (r *subscriptionRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[MessageType][]SubscriptionInfo)
}
