package cli

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// dateFlag accepts a calendar date in the app's zone or an RFC 3339 instant.
type dateFlag struct {
	loc *time.Location
	t   time.Time
}

var _ pflag.Value = (*dateFlag)(nil)

func (d *dateFlag) String() string {
	if d.t.IsZero() {
		return ""
	}

	return d.t.Format(time.DateOnly)
}

func (d *dateFlag) Set(s string) error {
	if t, err := time.ParseInLocation(time.DateOnly, s, d.loc); err == nil {
		d.t = t
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}

	d.t = t

	return nil
}

func (d *dateFlag) Type() string { return "date" }

// value returns the parsed date or fallback when the flag was not given.
func (d *dateFlag) value(fallback time.Time) time.Time {
	if d.t.IsZero() {
		return fallback
	}

	return d.t
}
