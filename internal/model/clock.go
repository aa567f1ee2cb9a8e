package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Clock is a wall-clock time of day stored as the offset from midnight.
// Values past 24h are legal: a long route may arrive "tomorrow".
type Clock time.Duration

// ParseClock parses "HH:MM" (or "HH:MM:SS").
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
			return Clock(d), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
}

// MustClock is ParseClock for literals.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// TravelTime is the flight time over distance at speed units per hour.
// A non-positive speed yields zero.
func TravelTime(distance, speed float64) time.Duration {
	if speed <= 0 {
		return 0
	}
	return time.Duration(distance / speed * float64(time.Hour))
}

// Add advances the clock by d.
func (c Clock) Add(d time.Duration) Clock { return c + Clock(d) }

func (c Clock) String() string {
	d := time.Duration(c)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Clock) MarshalYAML() (any, error) { return c.String(), nil }

func (c *Clock) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseClock(node.Value)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Window is a closed [Start, End] interval of clock times.
type Window struct {
	Start Clock `json:"start" yaml:"start"`
	End   Clock `json:"end" yaml:"end"`
}

// Contains reports whether t lies inside the window, endpoints included.
func (w Window) Contains(t Clock) bool { return t >= w.Start && t <= w.End }
