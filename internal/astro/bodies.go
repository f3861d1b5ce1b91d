// Package astro computes rise/set/transit events and visibility windows for
// the sun, the moon and the galactic center. All event arithmetic runs in
// UTC; callers convert to local time at the output boundary.
package astro

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// Body is a celestial object the engine tracks.
type Body int

const (
	Sun Body = iota
	Moon
	GalacticCenter
)

func (b Body) String() string {
	switch b {
	case Sun:
		return "sun"
	case Moon:
		return "moon"
	default:
		return "galactic center"
	}
}

// Altitude returns the geometric altitude of the body in degrees for an
// observer at (lat, lng) at instant t. Rise and set are zero crossings of
// this function; no refraction model is applied, so boundaries may disagree
// with apparent-horizon tables by a minute-level margin.
func Altitude(body Body, lat, lng float64, t time.Time) float64 {
	switch body {
	case Sun:
		return rad2deg(suncalc.GetPosition(t, lat, lng).Altitude)
	case Moon:
		return rad2deg(suncalc.GetMoonPosition(t, lat, lng).Altitude)
	default:
		return galacticAltitude(lat, lng, t)
	}
}

func rad2deg(rad float64) float64 { return rad * 180 / math.Pi }

func deg2rad(deg float64) float64 { return deg * math.Pi / 180 }
