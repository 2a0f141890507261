// Command wordgate-play plays the vocabulary gate game in a terminal against
// a running wordgate server. Answers are spoken into the microphone, read
// from audio files, or typed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Shared flags.
var (
	serverURL string
	verbose   bool
)

// errSessionFailed reports a session that ended in the error phase. The
// reason has already been shown to the player.
var errSessionFailed = errors.New("session failed")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "wordgate-play: load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errSessionFailed) {
			fmt.Fprintf(os.Stderr, "wordgate-play: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wordgate-play",
		Short: "Play the vocabulary gate game in a terminal",
		Long: `wordgate-play walks you down a road of gates, one per word served by a
wordgate server. Say (or type) the translation of the current word to open
the gate in front of you.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	defaultServer := os.Getenv("WORDGATE_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8000"
	}
	root.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "wordgate server URL (env WORDGATE_SERVER)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newWordsCmd(), newChecksCmd(), newPlayCmd())
	return root
}
