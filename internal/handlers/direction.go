package handlers

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"visionguard/internal/broker"
)

// DirectionHandler implements broker.Handler for "direction_result": the
// motion-direction command family.
type DirectionHandler struct {
	validate *validator.Validate
}

// NewDirectionHandler constructs a DirectionHandler.
func NewDirectionHandler() *DirectionHandler {
	return &DirectionHandler{validate: validator.New()}
}

func (h *DirectionHandler) TypeName() broker.MessageType { return "direction_result" }

var directionCommands = []string{"forward", "backward", "turn_left", "turn_right", "stationary"}

type directionPayload struct {
	Command          string   `json:"command" validate:"required"`
	Intensity        *float64 `json:"intensity" validate:"omitempty,gte=0"`
	AngularIntensity *float64 `json:"angular_intensity" validate:"omitempty,gte=0"`
	Timestamp        *string  `json:"timestamp"`
}

func (h *DirectionHandler) Validate(payload broker.Payload) broker.ValidationResult {
	var p directionPayload
	if err := decode(payload, &p); err != nil {
		return broker.Invalid(err.Error())
	}

	var errs []string
	if err := h.validate.Struct(p); err != nil {
		errs = append(errs, formatValidationErrors(err)...)
	}
	if !containsFold(directionCommands, p.Command) {
		errs = append(errs, fmt.Sprintf("command %q is not one of %v", p.Command, directionCommands))
	}

	if len(errs) > 0 {
		return broker.Invalid(errs...)
	}
	return broker.Valid()
}

func (h *DirectionHandler) Process(payload broker.Payload) (broker.Payload, error) {
	var p directionPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}

	intensity := 0.0
	if p.Intensity != nil {
		intensity = clampFinite(*p.Intensity)
	}
	angularIntensity := 0.0
	if p.AngularIntensity != nil {
		angularIntensity = clampFinite(*p.AngularIntensity)
	}

	return broker.Payload{
		"command":           strings.ToLower(p.Command),
		"intensity":         intensity,
		"angular_intensity": angularIntensity,
		"timestamp":         timestampOrNow(p.Timestamp),
	}, nil
}
