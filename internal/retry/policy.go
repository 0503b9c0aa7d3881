// Package retry implements a single exponential-backoff formula, shared by
// the TaskSupervisor's restart loop and the Scheduler's per-attempt retry
// loop so the two never drift apart.
package retry

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Policy is a validated set of retry constants plus the breaker thresholds
// that travel with them, since both are typically configured together.
type Policy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool

	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// New validates fields and returns a Policy. ExponentialBase defaults to 2.0
// when zero.
func New(maxAttempts int, baseDelay, maxDelay time.Duration, exponentialBase float64, jitter bool, failureThreshold, successThreshold int, recoveryTimeout time.Duration) (*Policy, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("retry: max_attempts must be >= 1, got %d", maxAttempts)
	}
	if baseDelay < 0 {
		return nil, fmt.Errorf("retry: base_delay must be >= 0, got %s", baseDelay)
	}
	if maxDelay < baseDelay {
		return nil, fmt.Errorf("retry: max_delay (%s) must be >= base_delay (%s)", maxDelay, baseDelay)
	}
	if exponentialBase == 0 {
		exponentialBase = 2.0
	}
	if exponentialBase < 1 {
		return nil, fmt.Errorf("retry: exponential_base must be >= 1, got %f", exponentialBase)
	}
	if failureThreshold < 1 {
		return nil, fmt.Errorf("retry: failure_threshold must be >= 1, got %d", failureThreshold)
	}
	if successThreshold < 1 {
		return nil, fmt.Errorf("retry: success_threshold must be >= 1, got %d", successThreshold)
	}
	if recoveryTimeout < 0 {
		return nil, fmt.Errorf("retry: recovery_timeout must be >= 0, got %s", recoveryTimeout)
	}

	return &Policy{
		MaxAttempts:      maxAttempts,
		BaseDelay:        baseDelay,
		MaxDelay:         maxDelay,
		ExponentialBase:  exponentialBase,
		Jitter:           jitter,
		FailureThreshold: failureThreshold,
		SuccessThreshold: successThreshold,
		RecoveryTimeout:  recoveryTimeout,
		rnd:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Delay returns min(base_delay * exponential_base^(k-1), max_delay),
// optionally scaled by a uniform factor in [0.75, 1.25] when Jitter is
// enabled. k is 1-indexed: Delay(1) is the wait before the first retry
// (the pause after attempt 1 fails); see DESIGN.md Open Question 3 for why
// the exponent starts at k-1 rather than k.
func (p *Policy) Delay(k int) time.Duration {
	if k < 1 {
		k = 1
	}
	raw := float64(p.BaseDelay) * math.Pow(p.ExponentialBase, float64(k-1))
	if raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	if p.Jitter {
		raw *= p.jitterFactor()
	}
	return time.Duration(raw)
}

func (p *Policy) jitterFactor() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return 0.75 + p.rnd.Float64()*0.5
}
