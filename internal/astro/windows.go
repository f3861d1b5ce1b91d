package astro

import (
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// eventFn resolves one horizon event from an anchor instant.
type eventFn func(anchor time.Time) (time.Time, error)

// pairState tracks the one-shift retry used when an anchored event pair
// comes back out of order. The second event may be recomputed once from an
// anchor one day later; a pair still out of order after the shift is an
// ephemeris inconsistency.
type pairState int

const (
	pairInitial pairState = iota
	pairShifted
	pairFailed
)

// orderedPair computes first(anchor) and second(anchor) and enforces
// first < second, applying the one-shift retry when needed.
func orderedPair(first, second eventFn, anchor time.Time) (time.Time, time.Time, error) {
	a, err := first(anchor)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	b, err := second(anchor)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	state := pairInitial
	for !a.Before(b) && state != pairFailed {
		switch state {
		case pairInitial:
			b, err = second(anchor.AddDate(0, 0, 1))
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			state = pairShifted
		case pairShifted:
			state = pairFailed
		}
	}
	if state == pairFailed {
		return time.Time{}, time.Time{}, domain.Errorf(domain.InconsistentEphemeris,
			"event pair still out of order after one-day shift: %s >= %s",
			a.UTC().Format(time.RFC3339), b.UTC().Format(time.RFC3339))
	}
	return a, b, nil
}

// DarkWindows returns n consecutive set-then-rise windows for the body,
// one per calendar day starting at date. Each window anchors at the UTC
// midnight of its day; boundaries are converted to the location's zone.
// Intended for the sun and the moon, where the object-free interval is the
// interesting one.
func DarkWindows(loc domain.Location, body Body, date time.Time, n int) ([]domain.DarkWindow, error) {
	anchor := midnightUTC(date)
	setting := func(a time.Time) (time.Time, error) { return NextSetting(body, loc.Lat, loc.Lng, a) }
	rising := func(a time.Time) (time.Time, error) { return NextRising(body, loc.Lat, loc.Lng, a) }

	windows := make([]domain.DarkWindow, 0, n)
	for i := 0; i < n; i++ {
		set, rise, err := orderedPair(setting, rising, anchor)
		if err != nil {
			return nil, domain.WrapError(domain.InconsistentEphemeris, err,
				"%s dark window for %s", body, anchor.Format("2006-01-02"))
		}
		windows = append(windows, domain.DarkWindow{
			Set:  set.In(loc.Zone()),
			Rise: rise.In(loc.Zone()),
		})
		anchor = anchor.AddDate(0, 0, 1)
	}
	return windows, nil
}

// VisibilityWindows returns n consecutive rise-then-set windows of the
// galactic center with the transit inside each, one per calendar day
// starting at date. Boundaries are converted to the location's zone.
func VisibilityWindows(loc domain.Location, date time.Time, n int) ([]domain.VisibilityWindow, error) {
	anchor := midnightUTC(date)
	rising := func(a time.Time) (time.Time, error) {
		return NextRising(GalacticCenter, loc.Lat, loc.Lng, a)
	}
	setting := func(a time.Time) (time.Time, error) {
		return NextSetting(GalacticCenter, loc.Lat, loc.Lng, a)
	}

	windows := make([]domain.VisibilityWindow, 0, n)
	for i := 0; i < n; i++ {
		rise, set, err := orderedPair(rising, setting, anchor)
		if err != nil {
			return nil, domain.WrapError(domain.InconsistentEphemeris, err,
				"galactic center window for %s", anchor.Format("2006-01-02"))
		}
		transit, err := transitWithin(loc.Lng, anchor, rise, set)
		if err != nil {
			return nil, err
		}
		windows = append(windows, domain.VisibilityWindow{
			Rise:    rise.In(loc.Zone()),
			Set:     set.In(loc.Zone()),
			Transit: transit.In(loc.Zone()),
		})
		anchor = anchor.AddDate(0, 0, 1)
	}
	return windows, nil
}

// transitWithin picks the transit instant falling inside (rise, set].
// Transits repeat once per sidereal day, so probing from three half-day
// anchors around the window is guaranteed to produce the one inside it.
func transitWithin(lng float64, anchor, rise, set time.Time) (time.Time, error) {
	probes := []time.Time{anchor.Add(-12 * time.Hour), anchor, anchor.Add(12 * time.Hour)}
	var best time.Time
	for _, p := range probes {
		t := nextGalacticTransit(lng, p)
		if t.After(rise) && !t.After(set) && (best.IsZero() || t.Before(best)) {
			best = t
		}
	}
	if best.IsZero() {
		return time.Time{}, domain.Errorf(domain.InconsistentEphemeris,
			"no galactic center transit between rise %s and set %s",
			rise.UTC().Format(time.RFC3339), set.UTC().Format(time.RFC3339))
	}
	return best, nil
}

// midnightUTC truncates t to the UTC midnight of its calendar date.
func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
