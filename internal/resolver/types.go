// Package resolver implements C3, the Camera Resolver: it maps a processed
// message to the cameras it should activate, backed by a narrow repository
// capability behind a read-through cache with retry-with-backoff and
// last-known-good fallback (C4's resolver-failure policy).
package resolver

import (
	"context"

	"visionguard/internal/broker"
)

// Repository is the external collaborator contract the Resolver consumes.
// A connectivity/timeout failure should be wrapped with broker.ErrTransient
// so the retry loop can tell it apart from a fatal, non-retryable error.
type Repository interface {
	ListCamerasByDirection(ctx context.Context, direction string) ([]broker.Camera, error)
	ListAngleRangesEnabled(ctx context.Context) ([]broker.AngleRange, error)
	GetCameraByID(ctx context.Context, id string) (*broker.Camera, error)
}

// AlertPolicy is the ai_alert resolver-policy extension point (spec's
// "placeholder" resolved as an injectable override). The default Resolver
// behavior is to return no cameras for ai_alert messages.
type AlertPolicy func(payload broker.Payload) []broker.Camera

// CurrentState is the snapshot the Stream Adapter requests on startup.
type CurrentState struct {
	Directions  map[string][]broker.Camera
	AngleRanges []broker.AngleRange
}

// directionFamilies enumerates the camera direction vocabulary (spec §3's
// "subset of {forward, backward, left, right, idle}").
var directionFamilies = []string{"forward", "backward", "left", "right", "idle"}

// commandDirectionFamily maps a normalized direction_result command to the
// camera direction family it activates (spec §4.3's resolution table).
var commandDirectionFamily = map[string]string{
	"forward":    "forward",
	"backward":   "backward",
	"turn_left":  "left",
	"turn_right": "right",
	"stationary": "idle",
}
