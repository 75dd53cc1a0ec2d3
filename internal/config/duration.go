package config

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Duration is a time.Duration that reads either a Go duration string
// ("50ms") or a number of seconds (0.05) and writes the string form.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseDuration(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return errors.Errorf("duration must be a string or number of seconds, got %s", data)
	}
	*d = secondsToDuration(secs)
	return nil
}

// ParseDuration accepts a Go duration string or a bare number of seconds.
func ParseDuration(s string) (Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return secondsToDuration(secs), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parse duration %q", s)
	}
	return Duration(d), nil
}

func secondsToDuration(secs float64) Duration {
	return Duration(math.Round(secs * float64(time.Second)))
}
