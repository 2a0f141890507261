// Package mock provides a test double for the stt.Provider interface.
//
// Provider replays scripted results in order and records every call so tests
// can assert on the clip and options that reached the STT layer.
//
// Example:
//
//	p := &mock.Provider{Results: []mock.Result{{Transcript: stt.Transcript{Text: "apple"}}}}
//	tr, _ := p.Transcribe(ctx, clip, stt.Options{})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
)

var _ stt.Provider = (*Provider)(nil)

// Result is one scripted Transcribe outcome.
type Result struct {
	Transcript stt.Transcript
	Err        error
}

// Call records a single invocation of Provider.Transcribe.
type Call struct {
	Clip audio.Clip
	Opts stt.Options
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Results are returned in order. The last entry repeats once the list is
	// exhausted. An empty list yields empty transcripts.
	Results []Result

	// Block, if non-nil, is received from before every call returns. Closing
	// it releases all pending calls.
	Block chan struct{}

	// Calls records every call to Transcribe.
	Calls []Call
}

// Transcribe records the call and returns the next scripted Result. It
// honours ctx cancellation while blocked.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, opts stt.Options) (stt.Transcript, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Clip: clip, Opts: opts})
	var r Result
	if n := len(p.Results); n > 0 {
		idx := min(len(p.Calls)-1, n-1)
		r = p.Results[idx]
	}
	block := p.Block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		}
	}
	return r.Transcript, r.Err
}

// CallCount returns the number of Transcribe invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastCall returns the most recent call. ok is false when there were none.
func (p *Provider) LastCall() (Call, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return Call{}, false
	}
	return p.Calls[len(p.Calls)-1], true
}

// Reply is a shorthand for a successful Result with the given text.
func Reply(text string) Result { return Result{Transcript: stt.Transcript{Text: text}} }

// Fail is a shorthand for a failed Result.
func Fail(err error) Result { return Result{Err: err} }
