// Package handlers implements C2: the built-in per-type validators and
// normalizers (direction_result, angle_value, ai_alert). Each handler is a
// stateless broker.Handler implementation; struct-level validation reuses
// the validator the teacher's event-validation layer uses for its own
// webhook/event payloads.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"visionguard/internal/broker"
)

// decode re-marshals an opaque broker.Payload into a typed, validate-tagged
// struct. Payloads arrive as untyped maps (JSON-compatible by contract), so
// a marshal/unmarshal round trip is the simplest faithful decode.
func decode(payload broker.Payload, dst interface{}) error {
	raw, err := json.Marshal(map[string]interface{}(payload))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// formatValidationErrors turns a validator.ValidationErrors into the plain
// string list ValidationResult carries.
func formatValidationErrors(err error) []string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve))
		for _, fe := range ve {
			out = append(out, fmt.Sprintf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
		}
		return out
	}
	return []string{err.Error()}
}

// timestampOrNow returns ts parsed if present and well-formed, otherwise the
// current time, both formatted as RFC3339Nano — every handler's "default:
// now" optional timestamp behaves the same way.
func timestampOrNow(ts *string) string {
	if ts != nil && *ts != "" {
		if _, err := time.Parse(time.RFC3339Nano, *ts); err == nil {
			return *ts
		}
		if _, err := time.Parse(time.RFC3339, *ts); err == nil {
			return *ts
		}
	}
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// clampFinite replaces a non-finite float with the nearest finite bound,
// per the direction handler's "clamp intensities to finite values" rule.
func clampFinite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return 0
	default:
		return v
	}
}

func containsFold(set []string, want string) bool {
	for _, s := range set {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
