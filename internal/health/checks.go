package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/wordgate/pkg/game"
)

// ErrSTTUnavailable is reported by [STT] when no provider would accept a call.
var ErrSTTUnavailable = errors.New("all speech-to-text circuit breakers are open")

// HealthReporter is implemented by provider groups that track breaker state.
type HealthReporter interface {
	Healthy() bool
}

// Vocabulary checks that src can be loaded and yields a playable vocabulary.
func Vocabulary(src game.Source) Checker {
	return Checker{
		Name: "vocabulary",
		Check: func(ctx context.Context) error {
			v, err := src.Load(ctx)
			if err != nil {
				return err
			}
			if err := v.Validate(); err != nil {
				return fmt.Errorf("invalid vocabulary: %w", err)
			}
			return nil
		},
	}
}

// STT checks that at least one speech-to-text provider has a closed or
// half-open circuit breaker. A nil reporter means no provider is configured.
func STT(r HealthReporter) Checker {
	return Checker{
		Name: "stt",
		Check: func(context.Context) error {
			if r == nil {
				return errors.New("no speech-to-text provider configured")
			}
			if !r.Healthy() {
				return ErrSTTUnavailable
			}
			return nil
		},
	}
}
