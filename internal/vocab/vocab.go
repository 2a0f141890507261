// Package vocab holds the vocabulary served to players. A [Store] is a
// [game.Source]; [Static] keeps the vocabulary in memory and can be swapped
// atomically when the configuration file changes.
package vocab

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/MrWong99/wordgate/pkg/game"
)

// ErrNotLoaded is returned by a [Static] store that was never given a
// vocabulary.
var ErrNotLoaded = errors.New("vocab: no vocabulary loaded")

// Store serves the vocabulary for new sessions.
type Store interface {
	game.Source
}

// Replacer is implemented by stores whose vocabulary can be swapped while
// sessions are running. Sessions that already loaded keep their copy.
type Replacer interface {
	Replace(ctx context.Context, v game.Vocabulary) error
}

// Compile-time interface assertions.
var (
	_ Store    = (*Static)(nil)
	_ Replacer = (*Static)(nil)
)

// Static is an in-memory vocabulary. It is safe for concurrent use. The zero
// value returns [ErrNotLoaded] until Replace is called.
type Static struct {
	v atomic.Pointer[game.Vocabulary]
}

// NewStatic returns a store serving v. v is validated and copied.
func NewStatic(v game.Vocabulary) (*Static, error) {
	s := &Static{}
	if err := s.Replace(context.Background(), v); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns a copy of the current vocabulary.
func (s *Static) Load(_ context.Context) (game.Vocabulary, error) {
	v := s.v.Load()
	if v == nil {
		return game.Vocabulary{}, ErrNotLoaded
	}
	return v.Clone(), nil
}

// Replace validates v and makes it the vocabulary for subsequent loads. An
// invalid vocabulary leaves the current one in place.
func (s *Static) Replace(_ context.Context, v game.Vocabulary) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("vocab: replace: %w", err)
	}
	c := v.Clone()
	s.v.Store(&c)
	return nil
}

// Keywords returns the answers of the current vocabulary, in gate order, for
// boosting the speech recogniser. A store without a vocabulary yields nil.
func Keywords(ctx context.Context, src game.Source) []string {
	v, err := src.Load(ctx)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(v.Words))
	seen := make(map[string]struct{}, len(v.Words))
	for _, w := range v.Words {
		a := v.Answers[w]
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
