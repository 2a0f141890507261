// Package portaudio records answers from the default system microphone.
//
// The device captures 16 kHz mono 16-bit audio and delivers it as raw
// network-order "audio/L16" fragments, one per PortAudio buffer. Linking this
// package requires the PortAudio C library.
package portaudio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/capture"
)

const (
	sampleRate      = 16000
	framesPerBuffer = 1024

	// pollInterval is how long the read loop sleeps when no frames are ready.
	pollInterval = 10 * time.Millisecond
)

var _ capture.Device = (*Device)(nil)

// inputStream is the part of [portaudio.Stream] the read loop uses.
type inputStream interface {
	AvailableToRead() (int, error)
	Read() error
	Stop() error
	Close() error
}

// Device is a microphone-backed [capture.Device].
type Device struct {
	mu      sync.Mutex
	buffer  []int16
	onData  func([]byte)
	running bool
	// done receives the stream's close error once the read loop exits.
	done chan error

	// open starts an input stream reading into buf.
	open func(buf []int16) (inputStream, error)

	initOnce sync.Once
	initErr  error
}

// New returns an uninitialised device. PortAudio is initialised lazily by
// RequestPermission.
func New() *Device {
	return &Device{buffer: make([]int16, framesPerBuffer), open: openDefault}
}

func openDefault(buf []int16) (inputStream, error) {
	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, framesPerBuffer, buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}
	return stream, nil
}

// RequestPermission initialises PortAudio and probes the default input
// device. Failure to find one is reported as [capture.ErrPermissionDenied].
func (d *Device) RequestPermission(_ context.Context) error {
	d.initOnce.Do(func() {
		if err := portaudio.Initialize(); err != nil {
			d.initErr = fmt.Errorf("%w: portaudio init: %v", capture.ErrPermissionDenied, err)
			return
		}
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			d.initErr = fmt.Errorf("%w: no default input device: %v", capture.ErrPermissionDenied, err)
			return
		}
		slog.Debug("portaudio input device", "name", dev.Name, "max_channels", dev.MaxInputChannels)
	})
	return d.initErr
}

// ContentType reports network-order PCM at the capture rate.
func (d *Device) ContentType() string {
	return audio.L16ContentType(audio.Format{SampleRate: sampleRate, Channels: 1})
}

// Start opens the default input stream and begins delivering fragments.
func (d *Device) Start(_ context.Context, onData func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initErr != nil {
		return d.initErr
	}
	if d.running {
		return capture.ErrAlreadyRecording
	}

	stream, err := d.open(d.buffer)
	if err != nil {
		return err
	}

	d.onData = onData
	d.running = true
	d.done = make(chan error, 1)
	go d.readLoop(stream, d.done)
	return nil
}

// readLoop owns stream: it is the only goroutine touching it, and it stops
// and closes the stream before reporting on done.
func (d *Device) readLoop(stream inputStream, done chan<- error) {
	defer func() { done <- closeStream(stream) }()
	for {
		d.mu.Lock()
		running := d.running
		d.mu.Unlock()
		if !running {
			return
		}

		available, err := stream.AvailableToRead()
		if err != nil || available < framesPerBuffer {
			time.Sleep(pollInterval)
			continue
		}
		if err := stream.Read(); err != nil {
			slog.Debug("portaudio: read failed", "err", err)
			time.Sleep(pollInterval)
			continue
		}

		d.mu.Lock()
		if d.running {
			frag := make([]byte, len(d.buffer)*2)
			for i, s := range d.buffer {
				binary.BigEndian.PutUint16(frag[i*2:], uint16(s))
			}
			d.onData(frag)
		}
		d.mu.Unlock()
	}
}

func closeStream(stream inputStream) error {
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("portaudio: stop stream: %w", err)
	}
	return stream.Close()
}

// Stop ends the recording and closes the stream.
func (d *Device) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return capture.ErrNotRecording
	}
	d.running = false
	done := d.done
	d.onData = nil
	d.mu.Unlock()

	return <-done
}

// Close releases PortAudio. The device cannot be used afterwards.
func (d *Device) Close() error {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if running {
		_ = d.Stop()
	}
	if d.initErr == nil {
		return portaudio.Terminate()
	}
	return nil
}
