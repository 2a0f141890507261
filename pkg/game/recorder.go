package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/capture"
)

// RecorderState is the recording controller's state.
type RecorderState int

const (
	// RecorderIdle can start a recording.
	RecorderIdle RecorderState = iota
	// RecorderRecording is capturing audio.
	RecorderRecording
	// RecorderUnavailable has no usable device; every call is a no-op.
	RecorderUnavailable
)

// String returns the lower-case state name.
func (s RecorderState) String() string {
	switch s {
	case RecorderRecording:
		return "recording"
	case RecorderUnavailable:
		return "unavailable"
	}
	return "idle"
}

// errNoDevice is reported by Init for a recorder built without a device.
var errNoDevice = errors.New("game: no capture device")

// RecordingSession buffers the fragments of one recording. Devices may feed it
// from their own goroutine.
type RecordingSession struct {
	mu        sync.Mutex
	fragments [][]byte
	closed    bool
}

func (rs *RecordingSession) append(p []byte) {
	if len(p) == 0 {
		return
	}
	frag := append([]byte(nil), p...)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.closed {
		rs.fragments = append(rs.fragments, frag)
	}
}

// drain closes the session and returns its fragments.
func (rs *RecordingSession) drain() [][]byte {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.closed = true
	f := rs.fragments
	rs.fragments = nil
	return f
}

// Recorder controls a [capture.Device]: idle and recording, a permanent
// unavailable state when permission was refused, and a guard that holds off
// new recordings while a submission is in flight. It does not know about game
// phases; the [Session] decides when toggling is allowed.
//
// Recorder is not safe for concurrent use apart from the device callback.
type Recorder struct {
	dev      capture.Device
	state    RecorderState
	current  *RecordingSession
	granted  bool
	inFlight bool
	disabled bool
}

// NewRecorder wraps dev. A nil dev yields a recorder that becomes
// unavailable on Init.
func NewRecorder(dev capture.Device) *Recorder {
	return &Recorder{dev: dev}
}

// Init requests device permission and applies the answer. On refusal the
// recorder is permanently unavailable and the device's error is returned.
func (r *Recorder) Init(ctx context.Context) error {
	err := r.RequestPermission(ctx)
	r.ApplyPermission(err)
	return err
}

// RequestPermission asks the device for access without changing any state,
// so it may run off the goroutine that owns the recorder. The result must be
// handed to [Recorder.ApplyPermission].
func (r *Recorder) RequestPermission(ctx context.Context) error {
	if r.dev == nil {
		return errNoDevice
	}
	return r.dev.RequestPermission(ctx)
}

// ApplyPermission records the result of a permission request. Recording is
// impossible until a nil result has been applied.
func (r *Recorder) ApplyPermission(err error) {
	if err != nil {
		r.MarkUnavailable()
		return
	}
	if r.state != RecorderUnavailable {
		r.granted = true
	}
}

// MarkUnavailable disables the recorder for good.
func (r *Recorder) MarkUnavailable() {
	if r.state == RecorderRecording {
		r.abort()
	}
	r.state = RecorderUnavailable
	r.granted = false
}

// State returns the current state.
func (r *Recorder) State() RecorderState { return r.state }

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool { return r.state == RecorderRecording }

// InFlight reports whether a submission awaits its result.
func (r *Recorder) InFlight() bool { return r.inFlight }

// CanStart reports whether Start would begin a recording.
func (r *Recorder) CanStart() bool {
	return r.state == RecorderIdle && r.granted && !r.inFlight && !r.disabled
}

// Start begins a new recording, discarding any previous buffer. It returns
// false without touching the device when the recorder cannot start, and the
// device's error when it refuses to start.
func (r *Recorder) Start(ctx context.Context) (bool, error) {
	if !r.CanStart() {
		return false, nil
	}
	rs := &RecordingSession{}
	if err := r.dev.Start(ctx, rs.append); err != nil {
		return false, err
	}
	r.current = rs
	r.state = RecorderRecording
	return true, nil
}

// Stop ends the recording and returns the captured audio as one clip, which
// must be submitted. A device error while stopping is logged; the clip holds
// whatever arrived. Stop is a no-op outside the recording state.
func (r *Recorder) Stop() (audio.Clip, bool) {
	if r.state != RecorderRecording {
		return audio.Clip{}, false
	}
	if err := r.dev.Stop(); err != nil {
		slog.Warn("recorder: device stop failed", "err", err)
	}
	clip := audio.Assemble(r.dev.ContentType(), r.current.drain())
	r.current = nil
	r.state = RecorderIdle
	r.inFlight = true
	return clip, true
}

// Delivered releases the in-flight guard once a submission's result arrived.
func (r *Recorder) Delivered() { r.inFlight = false }

// Abort stops an active recording and drops its audio without submitting.
func (r *Recorder) Abort() {
	if r.state == RecorderRecording {
		r.abort()
		r.state = RecorderIdle
	}
}

func (r *Recorder) abort() {
	if err := r.dev.Stop(); err != nil {
		slog.Debug("recorder: device stop on abort failed", "err", err)
	}
	if r.current != nil {
		r.current.drain()
		r.current = nil
	}
}

// Disable turns the recorder off until Reset.
func (r *Recorder) Disable() {
	r.Abort()
	r.disabled = true
}

// Disabled reports whether Disable was called since the last Reset.
func (r *Recorder) Disabled() bool { return r.disabled }

// Reset aborts any recording and clears the disabled flag. An unavailable
// recorder stays unavailable, and a submission still in flight keeps the
// guard until its result is delivered.
func (r *Recorder) Reset() {
	r.Abort()
	r.disabled = false
}
