package entities

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// ErrorDetail is the structured form of a bridge error.
//
// The hosted package may also raise one through trixi_host.raise_error as a JSON
// object, e.g. {"type":"BoundsError","code":"variable_id","message":"..."}.
// A payload that is not such an object is taken as a plain message.
type ErrorDetail struct {
	// Wrapped is the guest's own error when the detail describes a failed call.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	Details map[string]any `json:"details,omitempty"`

	Message string `json:"message"`

	// Type is one of "lifecycle", "resolution", "runtime", "depot",
	// "activation", "borrow", "config", "internal", or the guest's exception
	// type for raised errors.
	Type string `json:"type"`

	Code string `json:"code,omitempty"`

	// IsUsage marks caller misuse as opposed to a failure inside the runtime.
	IsUsage bool `json:"is_usage,omitempty"`
}

// GuestErrorType is the Type of a raised error that carried no type of its own.
const GuestErrorType = "guest"

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Type != "" && e.Type != "internal" {
		b.WriteString(e.Type)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// ParseGuestError decodes a raise_error payload.
func ParseGuestError(payload []byte) *ErrorDetail {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		var d ErrorDetail
		if err := json.Unmarshal([]byte(trimmed), &d); err == nil && d.Message != "" {
			if d.Type == "" {
				d.Type = GuestErrorType
			}
			return &d
		}
	}
	return NewErrorDetail(GuestErrorType, strings.ToValidUTF8(string(payload), "\uFFFD"))
}

// WithDetails returns a copy of e with details attached.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	c := *e
	c.Details = maps.Clone(details)
	return &c
}

// WithCode returns a copy of e with code set.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	c := *e
	c.Code = code
	return &c
}
