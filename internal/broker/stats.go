package broker

import "sync/atomic"

// brokerStats is C7: atomic counters composed, at read time, with per-type
// subscriber counts pulled from the subscription registry.
type brokerStats struct {
	published atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

func newBrokerStats() *brokerStats {
	return &brokerStats{}
}

func (s *brokerStats) recordPublish() { s.published.Add(1) }
func (s *brokerStats) recordSuccess() { s.succeeded.Add(1) }
func (s *brokerStats) recordFailure() { s.failed.Add(1) }

// StatsSnapshot is the value returned by Broker.Stats().
type StatsSnapshot struct {
	MessagesPublished int64
	MessagesSucceeded int64
	MessagesFailed    int64
	SubscribersByType map[MessageType]int
	SubscribersTotal  int
}

func (s *brokerStats) snapshot(subs *subscriptionRegistry) StatsSnapshot {
	return StatsSnapshot{
		MessagesPublished: s.published.Load(),
		MessagesSucceeded: s.succeeded.Load(),
		MessagesFailed:    s.failed.Load(),
		SubscribersByType: subs.countByType(),
		SubscribersTotal:  subs.total(),
	}
}
