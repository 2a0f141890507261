package codec

import (
	"errors"
	"testing"

	"github.com/MrWong99/wordgate/pkg/audio"
)

func TestSniff(t *testing.T) {
	t.Parallel()

	wav := audio.EncodeWAV(audio.PCM{Data: make([]byte, 4), Format: audio.STTFormat})

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "wav", data: wav, want: audio.ContentTypeWAV},
		{name: "webm", data: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, want: audio.ContentTypeWebM},
		{name: "short", data: []byte{0x1A}, want: ""},
		{name: "unknown", data: []byte("hello world!"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Sniff(tt.data); got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode_WAV(t *testing.T) {
	t.Parallel()

	in := audio.PCM{Data: []byte{1, 0, 2, 0, 3, 0, 4, 0}, Format: audio.STTFormat}
	pcm, err := Decode(audio.Clip{Data: audio.EncodeWAV(in), ContentType: audio.ContentTypeWAV})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if pcm.Format != audio.STTFormat {
		t.Errorf("format = %v, want %v", pcm.Format, audio.STTFormat)
	}
	if string(pcm.Data) != string(in.Data) {
		t.Errorf("data = %v, want %v", pcm.Data, in.Data)
	}
}

func TestDecode_SniffsUntyped(t *testing.T) {
	t.Parallel()

	in := audio.PCM{Data: make([]byte, 320), Format: audio.STTFormat}
	pcm, err := Decode(audio.Clip{Data: audio.EncodeWAV(in), ContentType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(pcm.Data) != 320 {
		t.Errorf("len = %d, want 320", len(pcm.Data))
	}
}

func TestDecode_L16(t *testing.T) {
	t.Parallel()

	clip := audio.Clip{Data: []byte{0x01, 0x02, 0x03, 0x04}, ContentType: "audio/L16;rate=16000;channels=1"}
	pcm, err := Decode(clip)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{0x02, 0x01, 0x04, 0x03}
	if string(pcm.Data) != string(want) {
		t.Errorf("data = %v, want %v", pcm.Data, want)
	}
	if pcm.Format.SampleRate != 16000 || pcm.Format.Channels != 1 {
		t.Errorf("format = %v", pcm.Format)
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		clip audio.Clip
		want error
	}{
		{name: "empty", clip: audio.Clip{ContentType: audio.ContentTypeWAV}, want: ErrEmpty},
		{name: "unsupported", clip: audio.Clip{Data: []byte("ID3xxxx"), ContentType: "audio/mpeg"}, want: ErrUnsupported},
		{name: "bad wav", clip: audio.Clip{Data: []byte("not a wav file"), ContentType: audio.ContentTypeWAV}, want: audio.ErrNotWAV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.clip)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeTo_Converts(t *testing.T) {
	t.Parallel()

	stereo48 := audio.PCM{Data: make([]byte, 48000*2*2), Format: audio.Format{SampleRate: 48000, Channels: 2}}
	pcm, err := DecodeTo(audio.Clip{Data: audio.EncodeWAV(stereo48), ContentType: audio.ContentTypeWAV}, audio.STTFormat)
	if err != nil {
		t.Fatalf("DecodeTo: %v", err)
	}
	if pcm.Format != audio.STTFormat {
		t.Errorf("format = %v, want %v", pcm.Format, audio.STTFormat)
	}
	if len(pcm.Data) != 32000 {
		t.Errorf("len = %d, want 32000", len(pcm.Data))
	}
}
