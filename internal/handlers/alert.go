package handlers

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"visionguard/internal/broker"
)

// AIAlertHandler implements broker.Handler for "ai_alert".
type AIAlertHandler struct {
	validate *validator.Validate
}

func NewAIAlertHandler() *AIAlertHandler {
	return &AIAlertHandler{validate: validator.New()}
}

func (h *AIAlertHandler) TypeName() broker.MessageType { return "ai_alert" }

var alertSeverities = []string{"low", "medium", "high", "critical"}

type alertPayload struct {
	AlertType string                 `json:"alert_type" validate:"required"`
	Severity  string                 `json:"severity" validate:"required"`
	Timestamp *string                `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func (h *AIAlertHandler) Validate(payload broker.Payload) broker.ValidationResult {
	var p alertPayload
	if err := decode(payload, &p); err != nil {
		return broker.Invalid(err.Error())
	}

	var errs []string
	if err := h.validate.Struct(p); err != nil {
		errs = append(errs, formatValidationErrors(err)...)
	}
	if !containsFold(alertSeverities, p.Severity) {
		errs = append(errs, fmt.Sprintf("severity %q is not one of %v", p.Severity, alertSeverities))
	}

	if len(errs) > 0 {
		return broker.Invalid(errs...)
	}
	return broker.Valid()
}

func (h *AIAlertHandler) Process(payload broker.Payload) (broker.Payload, error) {
	var p alertPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}

	out := broker.Payload{
		"alert_type": p.AlertType,
		"severity":   strings.ToLower(p.Severity),
		"timestamp":  timestampOrNow(p.Timestamp),
	}
	if p.Metadata != nil {
		out["metadata"] = p.Metadata
	}
	return out, nil
}
