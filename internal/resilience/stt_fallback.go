package resilience

import (
	"context"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// STT backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the clip through the first healthy provider. The returned
// transcript's Provider field names the backend that answered.
func (f *STTFallback) Transcribe(ctx context.Context, clip audio.Clip, opts stt.Options) (stt.Transcript, error) {
	tr, name, err := ExecuteWithResult(ctx, f.group, func(p stt.Provider) (stt.Transcript, error) {
		return p.Transcribe(ctx, clip, opts)
	})
	if err != nil {
		return stt.Transcript{}, err
	}
	if tr.Provider == "" {
		tr.Provider = name
	}
	return tr, nil
}

// Status reports the breaker state of every backend.
func (f *STTFallback) Status() []EntryStatus { return f.group.Status() }

// Healthy reports whether any backend would accept a request.
func (f *STTFallback) Healthy() bool { return f.group.Healthy() }
