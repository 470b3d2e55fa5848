// Package clock supplies wall-clock time to components that need "today".
//
// Nothing in dios reads time.Now directly; every component receives a Clock
// so tests can pin the calendar.
package clock

import (
	"time"

	"github.com/roach88/dios/internal/domain"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System is the production clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Today returns the UTC calendar day of c.Now().
func Today(c Clock) domain.Date {
	return domain.DateOf(c.Now())
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
