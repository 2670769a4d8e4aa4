package handlers

import (
	"testing"

	"visionguard/internal/broker"
)

func TestDirectionHandler_ValidCommand(t *testing.T) {
	h := NewDirectionHandler()
	payload := broker.Payload{"command": "FORWARD"}

	res := h.Validate(payload)
	if !res.Valid {
		t.Fatalf("expected valid, got errors %v", res.Errors)
	}

	normalized, err := h.Process(payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if normalized["command"] != "forward" {
		t.Fatalf("expected canonicalized lowercase command, got %v", normalized["command"])
	}
	if normalized["intensity"] != 0.0 {
		t.Fatalf("expected default intensity 0, got %v", normalized["intensity"])
	}
	if normalized["timestamp"] == "" || normalized["timestamp"] == nil {
		t.Fatalf("expected timestamp to be filled")
	}
}

func TestDirectionHandler_UnknownCommandRejected(t *testing.T) {
	h := NewDirectionHandler()
	res := h.Validate(broker.Payload{"command": "fly"})
	if res.Valid {
		t.Fatalf("expected invalid for unknown command")
	}
}

func TestDirectionHandler_NegativeIntensityRejected(t *testing.T) {
	h := NewDirectionHandler()
	res := h.Validate(broker.Payload{"command": "forward", "intensity": -1.0})
	if res.Valid {
		t.Fatalf("expected invalid for negative intensity")
	}
}

// S4 — angle=500 is out of [-180, 360] range and must be rejected.
func TestAngleHandler_OutOfRangeRejected(t *testing.T) {
	h := NewAngleHandler()
	res := h.Validate(broker.Payload{"angle": 500.0})
	if res.Valid {
		t.Fatalf("expected invalid for angle out of range")
	}
	if len(res.Errors) == 0 {
		t.Fatalf("expected a range error message")
	}
}

func TestAngleHandler_BoundaryValuesAccepted(t *testing.T) {
	h := NewAngleHandler()
	for _, angle := range []float64{-180, 0, 360} {
		res := h.Validate(broker.Payload{"angle": angle})
		if !res.Valid {
			t.Errorf("expected angle %v to be valid, got errors %v", angle, res.Errors)
		}
	}
}

func TestAngleHandler_DoesNotWrap(t *testing.T) {
	h := NewAngleHandler()
	normalized, err := h.Process(broker.Payload{"angle": -10.0})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if normalized["angle"] != -10.0 {
		t.Fatalf("expected handler to pass angle through unwrapped, got %v", normalized["angle"])
	}
}

func TestAngleHandler_MissingAngleRejected(t *testing.T) {
	h := NewAngleHandler()
	res := h.Validate(broker.Payload{})
	if res.Valid {
		t.Fatalf("expected invalid when angle is missing")
	}
}

func TestAIAlertHandler_Valid(t *testing.T) {
	h := NewAIAlertHandler()
	payload := broker.Payload{
		"alert_type": "intrusion",
		"severity":   "HIGH",
		"metadata":   map[string]interface{}{"zone": "north"},
	}
	res := h.Validate(payload)
	if !res.Valid {
		t.Fatalf("expected valid, got errors %v", res.Errors)
	}

	normalized, err := h.Process(payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if normalized["severity"] != "high" {
		t.Fatalf("expected canonicalized severity, got %v", normalized["severity"])
	}
}

func TestAIAlertHandler_InvalidSeverityRejected(t *testing.T) {
	h := NewAIAlertHandler()
	res := h.Validate(broker.Payload{"alert_type": "intrusion", "severity": "urgent"})
	if res.Valid {
		t.Fatalf("expected invalid for unrecognized severity")
	}
}

func TestAIAlertHandler_MissingAlertTypeRejected(t *testing.T) {
	h := NewAIAlertHandler()
	res := h.Validate(broker.Payload{"severity": "low"})
	if res.Valid {
		t.Fatalf("expected invalid when alert_type is missing")
	}
}

func TestHandlers_SatisfyBrokerInterface(t *testing.T) {
	var _ broker.Handler = NewDirectionHandler()
	var _ broker.Handler = NewAngleHandler()
	var _ broker.Handler = NewAIAlertHandler()
}
