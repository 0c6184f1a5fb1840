package client

import "time"

// Clock abstracts wall-clock reads so expiry sweeps can run on virtual time
// in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
