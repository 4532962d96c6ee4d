package chrono

import "time"

// DayLayout is the layout of a calendar day key, ex. 20240826.
const DayLayout = "20060102"

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Location().
	Now() time.Time
	Location() *time.Location
}

// Day returns the calendar day key of `t` in its own location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// Today returns the calendar day key of the current time of `clock`.
func Today(clock API) string {
	return Day(clock.Now())
}

// StandardImpl is the standard implementation of API using the standard library.
// Dates are always resolved in America/Sao_Paulo since that is where the
// participants publish their data, a machine in another timezone would
// otherwise roll the cache over at the wrong hour.
type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() (StandardImpl, error) {
	location, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same time, it is used in tests.
type FixedImpl struct {
	Time time.Time
}

func (f *FixedImpl) Now() time.Time {
	return f.Time
}

func (f *FixedImpl) Location() *time.Location {
	return f.Time.Location()
}

// Advance moves the fixed time forward by `d`.
func (f *FixedImpl) Advance(d time.Duration) {
	f.Time = f.Time.Add(d)
}
