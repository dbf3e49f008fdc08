package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is the process-wide time source. Every component that compares
// against "now" takes a Clock so tests can drive expiry deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
