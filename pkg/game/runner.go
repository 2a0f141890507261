package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/wordgate/pkg/audio"
)

// DefaultTick is the frame period of a [Runner].
const DefaultTick = 50 * time.Millisecond

// ErrRunnerStopped is returned by [Runner] commands after Run has returned.
var ErrRunnerStopped = errors.New("game: runner stopped")

// Submitter sends a recording to the answer service.
type Submitter interface {
	Submit(ctx context.Context, clip audio.Clip) (Verdict, error)
}

// SubmitterFunc adapts a function to [Submitter].
type SubmitterFunc func(ctx context.Context, clip audio.Clip) (Verdict, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, clip audio.Clip) (Verdict, error) {
	return f(ctx, clip)
}

// RunnerOption configures a [Runner].
type RunnerOption func(*Runner)

// WithTick sets the frame period used to advance the session.
func WithTick(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.tick = d
		}
	}
}

// WithStopOnTerminal makes Run return nil once the session is finished or
// failed, after the final popup has been shown for its full duration.
func WithStopOnTerminal() RunnerOption {
	return func(r *Runner) { r.stopOnTerminal = true }
}

// WithSubmitTimeout bounds each call to the [Submitter]. Zero means no bound.
func WithSubmitTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.submitTimeout = d }
}

// Runner hosts a [Session] on a single goroutine. The vocabulary fetch, the
// permission request and answer submissions run on helper goroutines and hand
// their results back to the loop, so the session itself is never touched
// concurrently. At most one submission is outstanding at any time because
// the recorder refuses to start while one is in flight.
type Runner struct {
	session *Session
	source  Source
	submit  Submitter

	tick           time.Duration
	stopOnTerminal bool
	submitTimeout  time.Duration

	cmds    chan func(context.Context)
	results chan submitResult
	loads   chan loadResult
	perms   chan error
	done    chan struct{}

	loadGen uint64
}

type submitResult struct {
	sub     *Submission
	verdict Verdict
	err     error
}

type loadResult struct {
	gen   uint64
	vocab Vocabulary
	err   error
}

// NewRunner returns a runner for session. Call Run to start it.
func NewRunner(session *Session, source Source, submit Submitter, opts ...RunnerOption) *Runner {
	r := &Runner{
		session: session,
		source:  source,
		submit:  submit,
		tick:    DefaultTick,
		cmds:    make(chan func(context.Context)),
		results: make(chan submitResult, 1),
		loads:   make(chan loadResult, 1),
		perms:   make(chan error, 1),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run loads the vocabulary, requests recording permission and drives the
// session until ctx is cancelled. It returns ctx's error, or nil when
// [WithStopOnTerminal] is set and the session ended.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	defer r.session.Recorder().Abort()

	r.startLoad(ctx)
	// A session built without a device is already unavailable; there is
	// nothing to ask for and no popup to show.
	if r.session.Recorder().State() != RecorderUnavailable {
		go func() {
			err := r.session.Recorder().RequestPermission(ctx)
			select {
			case r.perms <- err:
			case <-r.done:
			case <-ctx.Done():
			}
		}()
	}

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-r.loads:
			if res.gen != r.loadGen {
				continue
			}
			if res.err != nil {
				r.session.Fail(fmt.Errorf("game: load vocabulary: %w", res.err))
			} else if err := r.session.Begin(res.vocab); err != nil {
				slog.Error("game: vocabulary rejected", "err", err)
			}

		case err := <-r.perms:
			r.session.PermissionResult(err)

		case now := <-ticker.C:
			r.session.Advance(now.Sub(last))
			last = now

		case cmd := <-r.cmds:
			cmd(ctx)

		case res := <-r.results:
			if _, err := r.session.Deliver(res.sub, res.verdict, res.err); err != nil {
				slog.Error("game: answer rejected", "err", err)
			}
		}

		if r.stopOnTerminal && r.session.Phase().Terminal() && !r.session.popupOn {
			return nil
		}
	}
}

func (r *Runner) startLoad(ctx context.Context) {
	r.loadGen++
	gen := r.loadGen
	go func() {
		v, err := r.source.Load(ctx)
		select {
		case r.loads <- loadResult{gen: gen, vocab: v, err: err}:
		case <-r.done:
		case <-ctx.Done():
		}
	}()
}

// do runs fn on the loop goroutine and waits for it to finish.
func (r *Runner) do(ctx context.Context, fn func(context.Context)) error {
	finished := make(chan struct{})
	wrapped := func(loopCtx context.Context) {
		defer close(finished)
		fn(loopCtx)
	}
	select {
	case r.cmds <- wrapped:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// ToggleRecording presses the record button. Stopping a recording submits it.
func (r *Runner) ToggleRecording(ctx context.Context) error {
	return r.do(ctx, func(loopCtx context.Context) {
		if sub := r.session.ToggleRecording(loopCtx); sub != nil {
			r.dispatch(loopCtx, sub)
		}
	})
}

// SetRecording starts or stops recording to reach the wanted state. It does
// nothing when the recorder is already there, so repeated start or stop
// requests cannot toggle twice.
func (r *Runner) SetRecording(ctx context.Context, on bool) error {
	return r.do(ctx, func(loopCtx context.Context) {
		if r.session.Recorder().Recording() == on {
			return
		}
		if sub := r.session.ToggleRecording(loopCtx); sub != nil {
			r.dispatch(loopCtx, sub)
		}
	})
}

// SubmitText validates a typed answer as if it had been transcribed.
func (r *Runner) SubmitText(ctx context.Context, text string) (Outcome, error) {
	var (
		out    Outcome
		outErr error
	)
	err := r.do(ctx, func(context.Context) {
		out, outErr = r.session.Submit(text)
	})
	if err != nil {
		return OutcomeIgnored, err
	}
	return out, outErr
}

// Restart resets the session and loads the vocabulary again.
func (r *Runner) Restart(ctx context.Context) error {
	return r.do(ctx, func(loopCtx context.Context) {
		r.session.Reset()
		r.startLoad(loopCtx)
	})
}

// Inspect runs fn with the session on the loop goroutine. fn must not retain
// the session.
func (r *Runner) Inspect(ctx context.Context, fn func(*Session)) error {
	return r.do(ctx, func(context.Context) { fn(r.session) })
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) dispatch(ctx context.Context, sub *Submission) {
	go func() {
		sctx := ctx
		if r.submitTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(ctx, r.submitTimeout)
			defer cancel()
		}
		v, err := r.submit.Submit(sctx, sub.Clip)
		select {
		case r.results <- submitResult{sub: sub, verdict: v, err: err}:
		case <-r.done:
		case <-ctx.Done():
		}
	}()
}
