package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/wordgate/pkg/capture"
)

var _ capture.Device = (*remoteDevice)(nil)

// remoteDevice is the browser's microphone as seen from the server: binary
// frames received from the connection are fed into the active recording.
type remoteDevice struct {
	contentType string
	granted     bool

	mu     sync.Mutex
	onData func([]byte)
}

func newRemoteDevice(hello ClientMessage) *remoteDevice {
	return &remoteDevice{contentType: hello.ContentType, granted: hello.Microphone}
}

// RequestPermission reports what the browser said in its hello.
func (d *remoteDevice) RequestPermission(_ context.Context) error {
	if !d.granted {
		return fmt.Errorf("%w: browser reported no microphone", capture.ErrPermissionDenied)
	}
	return nil
}

func (d *remoteDevice) ContentType() string { return d.contentType }

func (d *remoteDevice) Start(_ context.Context, onData func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.onData != nil {
		return capture.ErrAlreadyRecording
	}
	d.onData = onData
	return nil
}

func (d *remoteDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.onData == nil {
		return capture.ErrNotRecording
	}
	d.onData = nil
	return nil
}

// feed delivers a fragment to the active recording. Fragments arriving while
// no recording is active are dropped and reported as such.
func (d *remoteDevice) feed(p []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.onData == nil {
		return false
	}
	d.onData(p)
	return true
}
