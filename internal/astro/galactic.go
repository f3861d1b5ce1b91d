package astro

import (
	"math"
	"time"
)

// Galactic center (Sagittarius A*), J2000 equatorial coordinates in degrees.
const (
	galacticRA  = 269.5144583
	galacticDec = -26.10127778
)

// siderealRate is how fast the hour angle of a fixed star advances, in
// degrees per solar day.
const siderealRate = 360.98564736629

// j2000 is the J2000.0 epoch expressed in UT, the zero point of the
// Greenwich mean sidereal time polynomial.
var j2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// gmstDegrees is the Greenwich mean sidereal time at t, in degrees [0, 360).
// Linear-term approximation of the IAU expression; sub-arcminute accuracy
// over the decades this service cares about, far below the horizon-crossing
// tolerance.
func gmstDegrees(t time.Time) float64 {
	d := t.Sub(j2000).Hours() / 24
	return normDegrees(280.46061837 + siderealRate*d)
}

// galacticHourAngle is the local hour angle of the galactic center in
// degrees, normalized to (-180, 180]. Zero at transit.
func galacticHourAngle(lng float64, t time.Time) float64 {
	ha := normDegrees(gmstDegrees(t) + lng - galacticRA)
	if ha > 180 {
		ha -= 360
	}
	return ha
}

// galacticAltitude is the geometric altitude of the galactic center in
// degrees for an observer at (lat, lng) at instant t.
func galacticAltitude(lat, lng float64, t time.Time) float64 {
	phi := deg2rad(lat)
	dec := deg2rad(galacticDec)
	ha := deg2rad(galacticHourAngle(lng, t))
	sinAlt := math.Sin(phi)*math.Sin(dec) + math.Cos(phi)*math.Cos(dec)*math.Cos(ha)
	return rad2deg(math.Asin(sinAlt))
}

// nextGalacticTransit returns the first upper transit strictly after from.
// The hour angle advances at the sidereal rate, so the instant is analytic;
// no search is needed.
func nextGalacticTransit(lng float64, from time.Time) time.Time {
	remaining := -galacticHourAngle(lng, from)
	if remaining <= 0 {
		remaining += 360
	}
	days := remaining / siderealRate
	return from.Add(time.Duration(days * 24 * float64(time.Hour)))
}

// MaxTransitAltitude is the altitude of the galactic center at upper transit
// for an observer at the given latitude, in degrees. A fixed property of the
// latitude; negative values mean the center never clears the horizon.
func MaxTransitAltitude(lat float64) float64 {
	return 90 - math.Abs(lat-galacticDec)
}

// normDegrees reduces an angle to [0, 360).
func normDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
