package model

import (
	"errors"
	"fmt"
)

// ErrInvalidScenario wraps every entity validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Validate checks the entity invariants the optimizer relies on: unique
// positive ids, positive speed, ordered windows and polygons with at least
// three vertices. An empty vehicle list is not rejected here; the optimizer
// reports it as a configuration error.
func (s Scenario) Validate() error {
	seen := map[int]bool{}
	for _, v := range s.Vehicles {
		if v.ID <= 0 {
			return fmt.Errorf("%w: vehicle id %d must be positive", ErrInvalidScenario, v.ID)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate vehicle id %d", ErrInvalidScenario, v.ID)
		}
		seen[v.ID] = true
		if v.Speed <= 0 {
			return fmt.Errorf("%w: vehicle %d speed must be > 0", ErrInvalidScenario, v.ID)
		}
		if v.MaxWeight < 0 || v.Battery < 0 {
			return fmt.Errorf("%w: vehicle %d capacity and battery must be >= 0", ErrInvalidScenario, v.ID)
		}
	}
	seen = map[int]bool{}
	for _, d := range s.Deliveries {
		if d.ID <= 0 {
			return fmt.Errorf("%w: delivery id %d must be positive", ErrInvalidScenario, d.ID)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate delivery id %d", ErrInvalidScenario, d.ID)
		}
		seen[d.ID] = true
		if d.Window.Start > d.Window.End {
			return fmt.Errorf("%w: delivery %d window starts after it ends", ErrInvalidScenario, d.ID)
		}
	}
	for _, z := range s.Zones {
		if len(z.Vertices) < 3 {
			return fmt.Errorf("%w: zone %d needs at least 3 vertices, got %d", ErrInvalidScenario, z.ID, len(z.Vertices))
		}
	}
	return nil
}
