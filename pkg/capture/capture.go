// Package capture defines the recording capability the game drives: a device
// that asks for permission once, then records answers between Start and Stop.
//
// Devices deliver audio through the onData callback passed to Start. The
// callback may be invoked from any goroutine, but never after Stop returns.
// Stop delivers whatever was still buffered before returning.
package capture

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by RequestPermission when the user or the
// platform refuses access to the recording device.
var ErrPermissionDenied = errors.New("capture: permission denied")

// ErrNotRecording is returned by Stop when no recording is in progress.
var ErrNotRecording = errors.New("capture: not recording")

// ErrAlreadyRecording is returned by Start while a recording is in progress.
var ErrAlreadyRecording = errors.New("capture: already recording")

// Device is a recording capability.
type Device interface {
	// RequestPermission asks for access to the device. A non-nil error means
	// the device is unusable for the rest of the session. Errors wrapping
	// [ErrPermissionDenied] indicate an explicit refusal.
	RequestPermission(ctx context.Context) error

	// ContentType is the MIME type of the bytes delivered to onData, e.g.
	// "audio/webm;codecs=opus" or "audio/L16;rate=16000;channels=1".
	ContentType() string

	// Start begins a new recording and streams fragments to onData.
	Start(ctx context.Context, onData func([]byte)) error

	// Stop ends the current recording after flushing buffered fragments.
	Stop() error
}
