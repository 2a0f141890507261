// Package audio holds the audio containers that flow between capture devices,
// the answer-check service, and speech-to-text providers.
//
// A [Clip] is an opaque recorded blob tagged with its MIME content type, exactly
// as it is uploaded to the server. A [PCM] buffer is decoded 16-bit signed
// little-endian audio with a known [Format]. Decoding from a Clip to PCM lives
// in the codec subpackage; this package only knows about raw PCM and WAV.
package audio

import (
	"mime"
	"strings"
	"time"
)

// Content types understood by the decoders and capture devices.
const (
	ContentTypeWebM = "audio/webm"
	ContentTypeWAV  = "audio/wav"
	ContentTypeL16  = "audio/L16"
)

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// STTFormat is the 16 kHz mono format preferred by speech recognisers.
var STTFormat = Format{SampleRate: 16000, Channels: 1}

// BytesPerSecond returns the size of one second of 16-bit PCM in this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Clip is a single recorded answer as produced by a capture device.
type Clip struct {
	// Data is the encoded audio payload (WebM container, WAV file, ...).
	Data []byte

	// ContentType is the MIME type of Data, e.g. "audio/webm;codecs=opus".
	ContentType string
}

// MediaType returns the clip's content type without parameters, lower-cased
// except for the L16 subtype whose canonical spelling is kept.
func (c Clip) MediaType() string {
	return MediaType(c.ContentType)
}

// Empty reports whether the clip carries no audio bytes.
func (c Clip) Empty() bool { return len(c.Data) == 0 }

// MediaType strips parameters from a content type. Unparseable values are
// returned trimmed and unchanged.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(contentType)
	}
	if strings.EqualFold(mt, ContentTypeL16) {
		return ContentTypeL16
	}
	switch mt {
	case "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return ContentTypeWAV
	}
	return mt
}

// PCM is decoded 16-bit signed little-endian interleaved audio.
type PCM struct {
	Data   []byte
	Format Format
}

// Duration returns the playback length of the buffer.
func (p PCM) Duration() time.Duration {
	bps := p.Format.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(len(p.Data)) * time.Second / time.Duration(bps)
}
