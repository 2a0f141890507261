// Package stt defines the Provider interface for Speech-to-Text backends.
//
// A provider turns one finished recording into text. The gate game records a
// single answer per toggle and then waits for the verdict, so the interface is
// batch shaped: the whole clip goes in and one Transcript comes out. Providers
// that talk to a streaming service (Deepgram) hide the stream behind the same
// call.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"

	"github.com/MrWong99/wordgate/pkg/audio"
)

// ErrNoSpeech is returned by providers that can tell the difference between a
// failed request and a recording that simply contained no recognisable words.
var ErrNoSpeech = errors.New("stt: no speech recognised")

// Options carries per-request recognition hints.
type Options struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en", "en-US").
	// Empty means the provider default.
	Language string

	// Keywords are vocabulary hints. The expected answers of a vocabulary are
	// a natural source. Providers without keyword support ignore them.
	Keywords []KeywordBoost
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe recognises the speech in clip. The clip may be any container
	// the audio/codec package can decode; providers that accept containers
	// natively may forward the bytes untouched.
	//
	// A successful call with an empty Text means the service answered but
	// heard nothing.
	Transcribe(ctx context.Context, clip audio.Clip, opts Options) (Transcript, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, clip audio.Clip, opts Options) (Transcript, error)

// Transcribe calls f.
func (f ProviderFunc) Transcribe(ctx context.Context, clip audio.Clip, opts Options) (Transcript, error) {
	return f(ctx, clip, opts)
}
