// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings
// (CGO). The model is loaded once at startup and shared by all requests;
// every request gets its own whisper context.
type NativeProvider struct {
	model        whisperlib.Model
	language     string
	rmsThreshold float64
	maxDuration  time.Duration
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithNativeSilenceThreshold sets the RMS level below which a recording is
// treated as silence. Zero disables the check.
func WithNativeSilenceThreshold(rms float64) NativeOption {
	return func(p *NativeProvider) { p.rmsThreshold = rms }
}

// WithNativeMaxDuration caps the amount of audio processed per request.
func WithNativeMaxDuration(d time.Duration) NativeOption {
	return func(p *NativeProvider) { p.maxDuration = d }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:        model,
		language:     defaultLanguage,
		rmsThreshold: defaultRMSThreshold,
		maxDuration:  defaultMaxDuration,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe decodes clip and runs in-process inference on it.
func (p *NativeProvider) Transcribe(ctx context.Context, clip audio.Clip, opts stt.Options) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if clip.Empty() {
		return stt.Transcript{}, nil
	}
	pcm, err := prepare(clip, p.maxDuration)
	if err != nil {
		return stt.Transcript{}, err
	}
	if silent(pcm.Data, p.rmsThreshold) {
		return stt.Transcript{Duration: pcm.Duration()}, nil
	}

	lang := opts.Language
	if lang == "" {
		lang = p.language
	}
	text, err := p.infer(pcm.Data, lang)
	if err != nil {
		return stt.Transcript{}, err
	}
	return stt.Transcript{Text: text, Duration: pcm.Duration()}, nil
}

// infer converts the PCM audio to float32, runs whisper.cpp inference using
// a fresh context, and returns the concatenated segment text.
func (p *NativeProvider) infer(pcm []byte, lang string) (string, error) {
	samples := audio.ToFloat32(pcm)

	// Contexts are not safe for concurrent use; the model is.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
