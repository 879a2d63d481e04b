package publish

import (
	"errors"
	"fmt"
)

// Reason classifies a failed persist, send or list.
type Reason string

const (
	ReasonMissingImageData   Reason = "missingImageData"
	ReasonInvalidImageData   Reason = "invalidImageData"
	ReasonBackendUnavailable Reason = "backendUnavailable"
	ReasonMissingEmail       Reason = "missingEmail"
	ReasonInvalidEmail       Reason = "invalidEmail"
	ReasonPersistFailed      Reason = "persistFailed"
	ReasonDeliveryFailed     Reason = "deliveryFailed"
)

// Error is returned by every Service operation. For ReasonDeliveryFailed,
// Record holds the row that was saved before delivery failed.
type Error struct {
	Reason  Reason
	Message string
	Record  *WaveformRecord
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same reason.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

// Sentinels for errors.Is.
var (
	ErrMissingImageData   = &Error{Reason: ReasonMissingImageData, Message: "missing image data"}
	ErrInvalidImageData   = &Error{Reason: ReasonInvalidImageData, Message: "image data is not a base64 image data URI"}
	ErrBackendUnavailable = &Error{Reason: ReasonBackendUnavailable, Message: "waveform store unavailable"}
	ErrMissingEmail       = &Error{Reason: ReasonMissingEmail, Message: "missing email"}
	ErrInvalidEmail       = &Error{Reason: ReasonInvalidEmail, Message: "invalid email address"}
	ErrPersistFailed      = &Error{Reason: ReasonPersistFailed, Message: "error saving waveform"}
	ErrDeliveryFailed     = &Error{Reason: ReasonDeliveryFailed, Message: "waveform saved, but there was an error sending the email"}
)

func newError(sentinel *Error, cause error) *Error {
	return &Error{Reason: sentinel.Reason, Message: sentinel.Message, Cause: cause}
}

// ReasonOf returns the reason of a publish error, or "" for other errors.
func ReasonOf(err error) Reason {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}
