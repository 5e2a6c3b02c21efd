package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Clock abstracts wall time so auction windows and lifecycle timestamps can
// run on simulated time in tests.
type Clock interface {
	Now() time.Time
}

// Mock is a controllable clock for tests, advanced with Add or Set.
type Mock = bclock.Mock

func New() Clock {
	return bclock.New()
}

func NewMock() *Mock {
	return bclock.NewMock()
}
