package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/ringsaturn/tzf"
)

// Location is an observer position with its resolved IANA time zone.
// Immutable once resolved for a request.
type Location struct {
	Lat      float64
	Lng      float64
	Timezone string

	zone *time.Location
}

var (
	tzOnce   sync.Once
	tzFinder tzf.F
	tzErr    error
)

func timezoneFinder() (tzf.F, error) {
	tzOnce.Do(func() {
		tzFinder, tzErr = tzf.NewDefaultFinder()
	})
	return tzFinder, tzErr
}

// NewLocation validates the coordinates and resolves the local time zone.
// Out-of-range coordinates are InvalidInput.
func NewLocation(lat, lng float64) (Location, error) {
	if lat > 90 || lat < -90 {
		return Location{}, Errorf(InvalidInput, "latitude out of range: %v (-90 <= lat <= 90)", lat)
	}
	if lng > 180 || lng < -180 {
		return Location{}, Errorf(InvalidInput, "longitude out of range: %v (-180 <= lng <= 180)", lng)
	}

	finder, err := timezoneFinder()
	if err != nil {
		return Location{}, fmt.Errorf("init timezone finder: %w", err)
	}
	name := finder.GetTimezoneName(lng, lat)
	if name == "" {
		return Location{}, Errorf(InvalidInput, "no timezone found for (%v, %v)", lat, lng)
	}
	zone, err := time.LoadLocation(name)
	if err != nil {
		return Location{}, fmt.Errorf("load timezone %q: %w", name, err)
	}

	return Location{Lat: lat, Lng: lng, Timezone: name, zone: zone}, nil
}

// LocationForTesting builds a Location with an explicit zone, bypassing the
// timezone finder. Tests only.
func LocationForTesting(lat, lng float64, zone *time.Location) Location {
	return Location{Lat: lat, Lng: lng, Timezone: zone.String(), zone: zone}
}

// Zone returns the location's *time.Location, falling back to UTC when the
// Location was built without resolution (zero value).
func (l Location) Zone() *time.Location {
	if l.zone == nil {
		return time.UTC
	}
	return l.zone
}
