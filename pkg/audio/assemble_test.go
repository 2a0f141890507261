package audio_test

import (
	"bytes"
	"testing"

	"github.com/MrWong99/wordgate/pkg/audio"
)

func TestAssemble_Container(t *testing.T) {
	clip := audio.Assemble("audio/webm;codecs=opus", [][]byte{{1, 2}, {3}, nil, {4}})
	if !bytes.Equal(clip.Data, []byte{1, 2, 3, 4}) {
		t.Errorf("data: got %v", clip.Data)
	}
	if clip.ContentType != "audio/webm;codecs=opus" {
		t.Errorf("content type: got %q", clip.ContentType)
	}
	if clip.MediaType() != audio.ContentTypeWebM {
		t.Errorf("media type: got %q", clip.MediaType())
	}
}

func TestAssemble_Empty(t *testing.T) {
	clip := audio.Assemble(audio.ContentTypeWebM, nil)
	if !clip.Empty() {
		t.Errorf("expected empty clip, got %d bytes", len(clip.Data))
	}
	if clip.ContentType != audio.ContentTypeWebM {
		t.Errorf("content type: got %q", clip.ContentType)
	}
}

func TestAssemble_L16WrapsWAV(t *testing.T) {
	ct := audio.L16ContentType(audio.Format{SampleRate: 8000, Channels: 1})
	// Network byte order: 0x0102 then 0x0304.
	clip := audio.Assemble(ct, [][]byte{{0x01, 0x02}, {0x03, 0x04}})
	if clip.ContentType != audio.ContentTypeWAV {
		t.Fatalf("content type: got %q, want %q", clip.ContentType, audio.ContentTypeWAV)
	}
	pcm, err := audio.DecodeWAV(clip.Data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if pcm.Format.SampleRate != 8000 || pcm.Format.Channels != 1 {
		t.Errorf("format: got %v", pcm.Format)
	}
	if !bytes.Equal(pcm.Data, []byte{0x02, 0x01, 0x04, 0x03}) {
		t.Errorf("samples not byte-swapped: %v", pcm.Data)
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"audio/webm;codecs=opus", audio.ContentTypeWebM},
		{"AUDIO/WEBM", audio.ContentTypeWebM},
		{"audio/x-wav", audio.ContentTypeWAV},
		{"audio/l16; rate=16000", audio.ContentTypeL16},
	}
	for _, tt := range tests {
		if got := audio.MediaType(tt.in); got != tt.want {
			t.Errorf("MediaType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestL16Format(t *testing.T) {
	if got := audio.L16Format("audio/L16;rate=44100;channels=2"); got != (audio.Format{SampleRate: 44100, Channels: 2}) {
		t.Errorf("got %v", got)
	}
	if got := audio.L16Format("audio/L16"); got != audio.STTFormat {
		t.Errorf("defaults: got %v", got)
	}
}
