// Package errclass maps an arbitrary error to an advisory class that policy
// layers (retry, circuit breaker) use to decide what to do next. It never
// decides policy itself.
package errclass

import (
	"errors"
	"strings"
)

// Class is one of the four advisory buckets errors get sorted into.
type Class int

const (
	Unknown Class = iota
	Transient
	RateLimited
	Permanent
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case RateLimited:
		return "rate_limited"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Classifiable is implemented by sentinel error types that already know
// their own class (e.g. internal/chat's PermissionError). Classify checks
// this before falling back to substring matching.
type Classifiable interface {
	ErrorClass() Class
}

// Classify returns the advisory class for err. A nil error classifies as
// Unknown; callers should not call Classify on a nil error in the retry
// path (nil means success).
func Classify(err error) Class {
	if err == nil {
		return Unknown
	}

	var classifiable Classifiable
	if errors.As(err, &classifiable) {
		return classifiable.ErrorClass()
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "rate limit", "ratelimit", "quota", "throttle", "429"):
		return RateLimited
	case containsAny(msg, "unauthorized", "forbidden", "not found", "bad request",
		"invalid credentials", "auth", "401", "403", "404", "400", "permission denied"):
		return Permanent
	case containsAny(msg, "timeout", "timed out", "connection reset", "connection refused",
		"dns", "temporarily unavailable", "i/o timeout", "eof", "broken pipe",
		"no such host", "network is unreachable", "502", "503", "504"):
		return Transient
	default:
		return Unknown
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
