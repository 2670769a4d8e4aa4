package streamadapter

import (
	"time"

	"visionguard/internal/broker"
	"visionguard/internal/resolver"
)

// Envelope is the JSON document the adapter forwards to the downstream
// streaming sink for every processed message.
type Envelope struct {
	Type          broker.MessageType `json:"type"`
	MessageID     string             `json:"message_id"`
	Timestamp     string             `json:"timestamp"`
	Data          broker.Payload     `json:"data"`
	Cameras       []broker.Camera    `json:"cameras"`
	Priority      int                `json:"priority"`
	RemainingTime int                `json:"remaining_time"`
}

// newEnvelope builds the streaming envelope from a processed message.
//
// Priority and remaining_time have no source in the broker's data model
// (spec.md §3 never defines them); they default to zero rather than being
// invented here, leaving room for a future handler to populate
// producer_hint-derived values without changing this shape.
func newEnvelope(msg broker.ProcessedMessage) Envelope {
	return Envelope{
		Type:          msg.Original.Type,
		MessageID:     msg.Original.MessageID.String(),
		Timestamp:     msg.Original.Timestamp.Format(time.RFC3339Nano),
		Data:          msg.Original.Data,
		Cameras:       msg.Cameras,
		Priority:      0,
		RemainingTime: 0,
	}
}

// currentStateEnvelope is the one-shot snapshot emitted on adapter startup.
type currentStateEnvelope struct {
	Type        string                     `json:"type"`
	Directions  map[string][]broker.Camera `json:"directions"`
	AngleRanges []broker.AngleRange        `json:"angle_ranges"`
}

func newCurrentStateEnvelope(state resolver.CurrentState) currentStateEnvelope {
	return currentStateEnvelope{
		Type:        "current_state",
		Directions:  state.Directions,
		AngleRanges: state.AngleRanges,
	}
}
