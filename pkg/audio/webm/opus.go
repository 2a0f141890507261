package webm

import (
	"encoding/binary"
	"fmt"

	"layeh.com/gopus"

	"github.com/MrWong99/wordgate/pkg/audio"
)

const (
	// Opus always decodes at 48 kHz regardless of the input rate declared in
	// OpusHead.
	opusSampleRate = 48000

	// maxFrameSize is the number of samples per channel in the longest legal
	// Opus packet (120 ms at 48 kHz).
	maxFrameSize = opusSampleRate * 120 / 1000
)

// Decode demuxes a WebM recording and decodes its Opus track to PCM. The
// pre-skip samples announced in OpusHead are trimmed from the start.
func Decode(data []byte) (audio.PCM, error) {
	s, err := Demux(data)
	if err != nil {
		return audio.PCM{}, err
	}
	return s.DecodeOpus()
}

// DecodeOpus decodes the stream's packets to 48 kHz interleaved PCM.
// Corrupt packets are skipped as long as at least one packet decodes.
func (s *Stream) DecodeOpus() (audio.PCM, error) {
	channels := s.Track.Channels
	if channels != 1 && channels != 2 {
		channels = 1
	}
	format := audio.Format{SampleRate: opusSampleRate, Channels: channels}
	if len(s.Packets) == 0 {
		return audio.PCM{Format: format}, nil
	}

	dec, err := gopus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("webm: create opus decoder: %w", err)
	}

	var (
		samples []int16
		lastErr error
		decoded int
	)
	for _, p := range s.Packets {
		if len(p.Data) == 0 {
			continue
		}
		pcm, err := dec.Decode(p.Data, maxFrameSize, false)
		if err != nil {
			lastErr = err
			continue
		}
		decoded++
		samples = append(samples, pcm...)
	}
	if decoded == 0 && lastErr != nil {
		return audio.PCM{}, fmt.Errorf("webm: opus decode: %w", lastErr)
	}

	if skip := preSkip(s.Track.CodecPrivate) * channels; skip > 0 {
		if skip >= len(samples) {
			samples = nil
		} else {
			samples = samples[skip:]
		}
	}
	return audio.PCM{Data: audio.SamplesToBytes(samples), Format: format}, nil
}

// preSkip reads the pre-skip field of an OpusHead header.
func preSkip(head []byte) int {
	if len(head) < 12 || string(head[0:8]) != "OpusHead" {
		return 0
	}
	return int(binary.LittleEndian.Uint16(head[10:12]))
}
