package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MrWong99/wordgate/pkg/audio"
)

// chunkSize is the fragment size FileDevice uses when replaying a file.
const chunkSize = 4096

// Compile-time assertion that FileDevice satisfies Device.
var _ Device = (*FileDevice)(nil)

// FileDevice replays pre-recorded answers. Each Start/Stop cycle delivers the
// next file of the playlist, wrapping around at the end. It is used by the
// headless player and in tests where no microphone exists.
type FileDevice struct {
	mu        sync.Mutex
	paths     []string
	next      int
	current   string
	onData    func([]byte)
	recording bool
}

// NewFileDevice returns a device that replays paths in order.
func NewFileDevice(paths ...string) (*FileDevice, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("capture: file device needs at least one file")
	}
	return &FileDevice{paths: paths, current: paths[0]}, nil
}

// RequestPermission checks that every file is readable.
func (d *FileDevice) RequestPermission(_ context.Context) error {
	for _, p := range d.paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}
	return nil
}

// ContentType is derived from the extension of the file being replayed.
func (d *FileDevice) ContentType() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ContentTypeForPath(d.current)
}

// Start selects the next file. Its contents are delivered on Stop so that a
// recording is always exactly one file.
func (d *FileDevice) Start(_ context.Context, onData func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recording {
		return ErrAlreadyRecording
	}
	d.current = d.paths[d.next%len(d.paths)]
	d.next++
	d.onData = onData
	d.recording = true
	return nil
}

// Stop reads the selected file and hands it to onData in fragments.
func (d *FileDevice) Stop() error {
	d.mu.Lock()
	if !d.recording {
		d.mu.Unlock()
		return ErrNotRecording
	}
	d.recording = false
	path, onData := d.current, d.onData
	d.onData = nil
	d.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("capture: read %q: %w", path, err)
	}
	for len(data) > 0 {
		n := min(chunkSize, len(data))
		onData(data[:n])
		data = data[n:]
	}
	return nil
}

// ContentTypeForPath maps a file extension to the audio content type used when
// uploading it.
func ContentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return audio.ContentTypeWAV
	case ".webm", ".weba":
		return "audio/webm;codecs=opus"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	}
	return "application/octet-stream"
}
