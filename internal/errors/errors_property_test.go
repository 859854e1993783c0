package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestClassifyStatusProperty checks the status taxonomy over the whole HTTP range
func TestClassifyStatusProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	reset := time.Unix(1700000000, 0)

	properties.Property("2xx never produces an error", prop.ForAll(
		func(status int, remaining int) bool {
			return ClassifyStatus(status, remaining, reset, "") == nil
		},
		gen.IntRange(200, 299),
		gen.IntRange(-1, 5000),
	))

	properties.Property("5xx is always service unavailable and transient", prop.ForAll(
		func(status int, remaining int) bool {
			err := ClassifyStatus(status, remaining, reset, "")
			return errors.Is(err, ErrServiceUnavailable) && IsTransient(err)
		},
		gen.IntRange(500, 599),
		gen.IntRange(-1, 5000),
	))

	properties.Property("403 is a rate limit only when remaining is zero", prop.ForAll(
		func(remaining int) bool {
			err := ClassifyStatus(403, remaining, reset, "")
			if remaining == 0 {
				return IsRateLimit(err) && !errors.Is(err, ErrInvalidQuery)
			}
			return errors.Is(err, ErrInvalidQuery) && !IsRateLimit(err)
		},
		gen.IntRange(-1, 50),
	))

	properties.Property("invalid query errors are never retried", prop.ForAll(
		func(remaining int) bool {
			return !IsTransient(ClassifyStatus(422, remaining, reset, ""))
		},
		gen.IntRange(-1, 5000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
