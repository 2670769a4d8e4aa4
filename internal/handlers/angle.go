package handlers

import (
	"github.com/go-playground/validator/v10"

	"visionguard/internal/broker"
)

// AngleHandler implements broker.Handler for "angle_value": the sensor
// angle readings. It does not wrap the angle into [0, 360) — that's the
// Resolver's job (spec.md §4.3); the handler only validates and passes the
// source range through.
type AngleHandler struct {
	validate *validator.Validate
}

func NewAngleHandler() *AngleHandler {
	return &AngleHandler{validate: validator.New()}
}

func (h *AngleHandler) TypeName() broker.MessageType { return "angle_value" }

type anglePayload struct {
	Angle     *float64 `json:"angle" validate:"required,gte=-180,lte=360"`
	Timestamp *string  `json:"timestamp"`
}

func (h *AngleHandler) Validate(payload broker.Payload) broker.ValidationResult {
	var p anglePayload
	if err := decode(payload, &p); err != nil {
		return broker.Invalid(err.Error())
	}
	if err := h.validate.Struct(p); err != nil {
		return broker.Invalid(formatValidationErrors(err)...)
	}
	return broker.Valid()
}

func (h *AngleHandler) Process(payload broker.Payload) (broker.Payload, error) {
	var p anglePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}

	return broker.Payload{
		"angle":     *p.Angle,
		"timestamp": timestampOrNow(p.Timestamp),
	}, nil
}
