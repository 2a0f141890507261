// Package mock provides a scriptable [capture.Device] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/wordgate/pkg/capture"
)

var _ capture.Device = (*Device)(nil)

// Device records calls and replays the configured fragments on Stop.
type Device struct {
	mu sync.Mutex

	// PermissionErr is returned by RequestPermission.
	PermissionErr error
	// StartErr is returned by Start.
	StartErr error
	// StopErr is returned by Stop after fragments were delivered.
	StopErr error
	// MIME is returned by ContentType. Defaults to "audio/webm".
	MIME string
	// Fragments are delivered to onData during Stop.
	Fragments [][]byte

	onData     func([]byte)
	recording  bool
	starts     int
	stops      int
	permission int
}

// RequestPermission records the call and returns PermissionErr.
func (d *Device) RequestPermission(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permission++
	return d.PermissionErr
}

// ContentType returns MIME or "audio/webm".
func (d *Device) ContentType() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.MIME == "" {
		return "audio/webm"
	}
	return d.MIME
}

// Start records the call.
func (d *Device) Start(_ context.Context, onData func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	if d.StartErr != nil {
		return d.StartErr
	}
	if d.recording {
		return capture.ErrAlreadyRecording
	}
	d.recording = true
	d.onData = onData
	return nil
}

// Stop delivers Fragments and returns StopErr.
func (d *Device) Stop() error {
	d.mu.Lock()
	d.stops++
	if !d.recording {
		d.mu.Unlock()
		return capture.ErrNotRecording
	}
	d.recording = false
	onData, frags := d.onData, d.Fragments
	d.onData = nil
	err := d.StopErr
	d.mu.Unlock()

	for _, f := range frags {
		onData(f)
	}
	return err
}

// Emit delivers p to the active recording as if the hardware produced it.
// It is a no-op when not recording.
func (d *Device) Emit(p []byte) {
	d.mu.Lock()
	onData := d.onData
	d.mu.Unlock()
	if onData != nil {
		onData(p)
	}
}

// Recording reports whether Start was called without a matching Stop.
func (d *Device) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

// Starts returns how many times Start was called.
func (d *Device) Starts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

// Stops returns how many times Stop was called.
func (d *Device) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// PermissionRequests returns how many times RequestPermission was called.
func (d *Device) PermissionRequests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}
