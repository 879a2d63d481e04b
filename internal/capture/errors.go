package capture

import (
	"errors"
	"fmt"
)

// Error codes of a failed device acquisition.
const (
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeDeviceUnavailable = "DEVICE_UNAVAILABLE"
	CodeCaptureDiscarded  = "CAPTURE_DISCARDED"
)

// Error is returned by Source.Open, Controller.Start and Controller.Stop.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrPermissionDenied)
// works regardless of message and cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrPermissionDenied  = &Error{Code: CodePermissionDenied, Message: "microphone access denied"}
	ErrDeviceUnavailable = &Error{Code: CodeDeviceUnavailable, Message: "no usable capture device"}
	ErrCaptureDiscarded  = &Error{Code: CodeCaptureDiscarded, Message: "recording could not be stored"}
)

// ErrControllerClosed is returned by Start after Shutdown.
var ErrControllerClosed = errors.New("capture controller is shut down")

// PermissionDenied wraps cause as a permission failure.
func PermissionDenied(message string, cause error) *Error {
	return &Error{Code: CodePermissionDenied, Message: message, Cause: cause}
}

// DeviceUnavailable wraps cause as a missing or failing device.
func DeviceUnavailable(message string, cause error) *Error {
	return &Error{Code: CodeDeviceUnavailable, Message: message, Cause: cause}
}

// classify turns an arbitrary open failure into an *Error, keeping one that
// already is.
func classify(err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return DeviceUnavailable("failed to open capture device", err)
}
