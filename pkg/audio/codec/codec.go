// Package codec turns uploaded [audio.Clip] payloads into PCM for providers
// that need raw samples.
package codec

import (
	"errors"
	"fmt"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/audio/webm"
)

// ErrUnsupported is returned for content types no decoder handles.
var ErrUnsupported = errors.New("codec: unsupported content type")

// ErrEmpty is returned for clips without audio bytes.
var ErrEmpty = errors.New("codec: empty clip")

// Decode decodes clip into PCM in its native format. An empty content type is
// sniffed from the payload's magic bytes.
func Decode(clip audio.Clip) (audio.PCM, error) {
	if clip.Empty() {
		return audio.PCM{}, ErrEmpty
	}
	mt := clip.MediaType()
	if mt == "" || mt == "application/octet-stream" {
		mt = Sniff(clip.Data)
	}

	switch mt {
	case audio.ContentTypeWAV:
		pcm, err := audio.DecodeWAV(clip.Data)
		if err != nil {
			return audio.PCM{}, fmt.Errorf("codec: %w", err)
		}
		return pcm, nil
	case audio.ContentTypeWebM, "video/webm":
		pcm, err := webm.Decode(clip.Data)
		if err != nil {
			return audio.PCM{}, fmt.Errorf("codec: %w", err)
		}
		return pcm, nil
	case audio.ContentTypeL16:
		return audio.BigEndianToLittle(audio.PCM{Data: clip.Data, Format: audio.L16Format(clip.ContentType)}), nil
	}
	return audio.PCM{}, fmt.Errorf("%w: %q", ErrUnsupported, clip.ContentType)
}

// DecodeTo decodes clip and converts it to target.
func DecodeTo(clip audio.Clip, target audio.Format) (audio.PCM, error) {
	pcm, err := Decode(clip)
	if err != nil {
		return audio.PCM{}, err
	}
	return audio.Convert(pcm, target), nil
}

// Sniff guesses a content type from magic bytes. It returns "" when unsure.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return audio.ContentTypeWAV
	case len(data) >= 4 && data[0] == 0x1A && data[1] == 0x45 && data[2] == 0xDF && data[3] == 0xA3:
		return audio.ContentTypeWebM
	}
	return ""
}
