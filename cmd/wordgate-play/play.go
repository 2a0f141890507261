package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/wordgate/internal/sink"
	"github.com/MrWong99/wordgate/pkg/capture"
	"github.com/MrWong99/wordgate/pkg/capture/portaudio"
	"github.com/MrWong99/wordgate/pkg/client"
	"github.com/MrWong99/wordgate/pkg/game"
)

type playOptions struct {
	mic    bool
	clips  []string
	typed  bool
	notify bool
	locale string
	travel bool
}

func newPlayCmd() *cobra.Command {
	var o playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a session against the server",
		Long: `Play a session against the server.

Press Enter to start recording and Enter again to submit the answer.
Type :r to restart and :q to quit. With --typed every other line is
checked as if it had been spoken.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			modes := 0
			for _, on := range []bool{o.mic, len(o.clips) > 0, o.typed} {
				if on {
					modes++
				}
			}
			if modes > 1 {
				return errors.New("--mic, --clips and --typed are mutually exclusive")
			}
			if modes == 0 {
				o.mic = true
			}
			return play(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), o)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.mic, "mic", false, "record answers from the default microphone (default mode)")
	f.StringSliceVar(&o.clips, "clips", nil, "answer with these audio files, one per recording")
	f.BoolVar(&o.typed, "typed", false, "type answers instead of recording them")
	f.BoolVar(&o.notify, "notify", false, "raise desktop notifications for answer results")
	f.StringVar(&o.locale, "locale", "en", "message language (en or ru)")
	f.BoolVar(&o.travel, "travel", false, "print the distance walked between gates")
	return cmd
}

func play(ctx context.Context, in io.Reader, out io.Writer, o playOptions) error {
	c, err := client.New(serverURL)
	if err != nil {
		return err
	}

	dev, closeDev, err := openDevice(o)
	if err != nil {
		return err
	}
	defer closeDev()

	messages := game.MessagesFor(o.locale)
	var consoleOpts []sink.ConsoleOption
	if o.travel {
		consoleOpts = append(consoleOpts, sink.WithTravel())
	}
	console := sink.NewConsole(out, messages, consoleOpts...)
	sinks := game.MultiSink{console}
	if o.notify {
		sinks = append(sinks, sink.NewNotifier("wordgate"))
	}

	var rec *game.Recorder
	if dev != nil {
		rec = game.NewRecorder(dev)
	}
	session := game.NewSession(rec, sinks, game.WithMessages(messages))
	runner := game.NewRunner(session, c, c, game.WithStopOnTerminal())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return readCommands(gctx, in, runner, console, o.typed) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errQuit) {
		return err
	}

	// The runner has stopped, so the session is no longer shared.
	switch session.Phase() {
	case game.PhaseFinished:
		sink.PrintSummary(out, session.Vocabulary().Words, session.Summary())
		return nil
	case game.PhaseError:
		return errSessionFailed
	default:
		if s := session.Summary(); s.Attempts > 0 {
			sink.PrintSummary(out, session.Vocabulary().Words, s)
		}
		return nil
	}
}

// errQuit ends the command loop when the player types :q.
var errQuit = errors.New("quit")

// readCommands turns input lines into runner commands until the runner stops.
func readCommands(ctx context.Context, in io.Reader, runner *game.Runner, console *sink.Console, typed bool) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case <-runner.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return errQuit
			}
			line = strings.TrimSpace(l)
		}

		var err error
		switch {
		case line == ":q":
			return errQuit
		case line == ":r":
			err = runner.Restart(ctx)
		case line == ":s":
			err = runner.Inspect(ctx, func(s *game.Session) {
				console.Printf("%s", statusLine(s.State(), len(s.Vocabulary().Words)))
			})
		case typed && line != "":
			var out game.Outcome
			out, err = runner.SubmitText(ctx, line)
			if err == nil && out == game.OutcomeIgnored {
				console.Printf("(not accepting answers right now)")
			}
		default:
			err = runner.ToggleRecording(ctx)
		}
		if errors.Is(err, game.ErrRunnerStopped) {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			console.Printf("error: %v", err)
		}
	}
}

// statusLine describes st for the :s command. The gate is "done" once every
// gate is passed and "-" while there is no vocabulary.
func statusLine(st game.State, total int) string {
	gate := "-"
	switch {
	case st.Phase == game.PhaseFinished:
		gate = "done"
	case st.CurrentIndex >= 0 && st.CurrentIndex < total:
		gate = fmt.Sprintf("%d/%d", st.CurrentIndex+1, total)
	}
	return fmt.Sprintf("phase=%s gate=%s recording=%t", st.Phase, gate, st.Recording)
}

// openDevice returns the capture device for the chosen mode and a function
// releasing it. Typed mode has no device.
func openDevice(o playOptions) (capture.Device, func(), error) {
	switch {
	case o.typed:
		return nil, func() {}, nil
	case len(o.clips) > 0:
		d, err := capture.NewFileDevice(o.clips...)
		if err != nil {
			return nil, nil, fmt.Errorf("open clips: %w", err)
		}
		return d, func() {}, nil
	default:
		d := portaudio.New()
		return d, func() { _ = d.Close() }, nil
	}
}
