package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newGroup(cfg CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{CircuitBreaker: cfg})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := newGroup(CircuitBreakerConfig{MaxFailures: 3})

	var called []string
	name, err := fg.Execute(context.Background(), func(v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "primary" || len(called) != 1 {
		t.Fatalf("name = %q, called = %v; want primary only", name, called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := newGroup(CircuitBreakerConfig{MaxFailures: 3})

	name, err := fg.Execute(context.Background(), func(v string) error {
		if v == "primary" {
			return errTest
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "secondary" {
		t.Fatalf("name = %q, want secondary", name)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := newGroup(CircuitBreakerConfig{MaxFailures: 3})

	_, err := fg.Execute(context.Background(), func(string) error { return errTest })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errTest) {
		t.Fatalf("err = %v, want the last failure wrapped", err)
	}
}

func TestFallbackGroup_CircuitBreakerSkipsOpenProvider(t *testing.T) {
	fg := newGroup(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	for range 2 {
		_, _ = fg.Execute(context.Background(), func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var called []string
	name, err := fg.Execute(context.Background(), func(v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "secondary" || len(called) != 1 {
		t.Fatalf("name = %q, called = %v; primary circuit should be open", name, called)
	}

	status := fg.Status()
	if len(status) != 2 || status[0].State != StateOpen || status[1].State != StateClosed {
		t.Fatalf("Status() = %+v", status)
	}
	if !fg.Healthy() {
		t.Fatal("group with a closed secondary must be healthy")
	}
}

func TestFallbackGroup_HealthyFalseWhenAllOpen(t *testing.T) {
	fg := newGroup(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	_, _ = fg.Execute(context.Background(), func(string) error { return errTest })
	if fg.Healthy() {
		t.Fatal("all breakers open, want unhealthy")
	}
	if fg.Len() != 2 {
		t.Fatalf("Len() = %d", fg.Len())
	}
}

func TestFallbackGroup_StopsOnCancellation(t *testing.T) {
	fg := newGroup(CircuitBreakerConfig{MaxFailures: 3})
	ctx, cancel := context.WithCancel(context.Background())

	var called []string
	_, err := fg.Execute(ctx, func(v string) error {
		called = append(called, v)
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(called) != 1 {
		t.Fatalf("called = %v, fallbacks must not run after cancellation", called)
	}
	if fg.Status()[0].State != StateClosed {
		t.Fatal("cancellation must not count against the primary")
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	result, name, err := ExecuteWithResult(context.Background(), fg, func(v int) (string, error) {
		if v == 10 {
			return "", errTest
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-twenty" || name != "twenty" {
		t.Fatalf("result = %q, name = %q", result, name)
	}
}
