package astro

import (
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

const (
	// searchStep is the coarse sampling interval of the crossing search.
	// Ten minutes is small enough that no horizon crossing of the sun, the
	// moon or a fixed star fits between two samples.
	searchStep = 10 * time.Minute

	// searchHorizon bounds the search. Every tracked body rises and sets at
	// least once in two days everywhere the events exist at all; exceeding
	// the horizon means the event does not occur at this latitude.
	searchHorizon = 48 * time.Hour

	// searchTolerance is the bisection stopping width.
	searchTolerance = 15 * time.Second
)

// altitudeAt is the altitude in degrees of some body as a function of time.
type altitudeAt func(t time.Time) float64

// NextRising returns the first instant after from at which the body crosses
// the geometric horizon upward.
func NextRising(body Body, lat, lng float64, from time.Time) (time.Time, error) {
	return nextCrossing(body, lat, lng, from, true)
}

// NextSetting returns the first instant after from at which the body crosses
// the geometric horizon downward.
func NextSetting(body Body, lat, lng float64, from time.Time) (time.Time, error) {
	return nextCrossing(body, lat, lng, from, false)
}

func nextCrossing(body Body, lat, lng float64, from time.Time, rising bool) (time.Time, error) {
	alt := func(t time.Time) float64 { return Altitude(body, lat, lng, t) }

	prev := from
	prevAlt := alt(prev)
	limit := from.Add(searchHorizon)
	for cur := from.Add(searchStep); !cur.After(limit); cur = cur.Add(searchStep) {
		curAlt := alt(cur)
		if crossed(prevAlt, curAlt, rising) {
			return bisect(alt, prev, cur, rising), nil
		}
		prev, prevAlt = cur, curAlt
	}

	event := "setting"
	if rising {
		event = "rising"
	}
	return time.Time{}, domain.Errorf(domain.InconsistentEphemeris,
		"no %s of the %s within %v after %s at (%.4f, %.4f)",
		event, body, searchHorizon, from.UTC().Format(time.RFC3339), lat, lng)
}

// crossed reports whether the altitude passed through zero in the wanted
// direction between two consecutive samples.
func crossed(before, after float64, rising bool) bool {
	if rising {
		return before <= 0 && after > 0
	}
	return before >= 0 && after < 0
}

// bisect narrows a bracketed crossing down to searchTolerance and returns
// the midpoint of the final interval.
func bisect(alt altitudeAt, lo, hi time.Time, rising bool) time.Time {
	loAlt := alt(lo)
	for hi.Sub(lo) > searchTolerance {
		mid := lo.Add(hi.Sub(lo) / 2)
		midAlt := alt(mid)
		if crossed(loAlt, midAlt, rising) {
			hi = mid
		} else {
			lo, loAlt = mid, midAlt
		}
	}
	return lo.Add(hi.Sub(lo) / 2)
}
