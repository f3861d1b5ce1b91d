package astro

import (
	"time"

	"github.com/sixdouglas/suncalc"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// MoonFree reports whether the moon stays below the geometric horizon for
// the whole hour starting at start. A single hour is short enough that
// checking both boundary instants suffices. start must be a whole UTC hour;
// anything else is an InvalidInput error.
func MoonFree(lat, lng float64, start time.Time) (bool, error) {
	if start.Location() != time.UTC {
		return false, domain.Errorf(domain.InvalidInput, "hour start must be in UTC, got zone %s", start.Location())
	}
	if start.Minute() != 0 || start.Second() != 0 || start.Nanosecond() != 0 {
		return false, domain.Errorf(domain.InvalidInput, "hour start must be a whole hour, got %s", start.Format(time.RFC3339Nano))
	}
	if Altitude(Moon, lat, lng, start) > 0 {
		return false, nil
	}
	return Altitude(Moon, lat, lng, start.Add(time.Hour)) <= 0, nil
}

// moonScanStep samples the lunar phase often enough that the wrap from
// full-cycle back to zero always lands between two samples.
const moonScanStep = 6 * time.Hour

// NewMoonDates lists every new moon of the given year as local calendar
// dates ("Jan 02") in the given zone. The scan starts before January and
// runs past December so new moons near the year boundary resolve to the
// correct local year.
func NewMoonDates(year int, zone *time.Location) []string {
	start := time.Date(year-1, time.December, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 15, 0, 0, 0, 0, time.UTC)

	var dates []string
	prev := start
	prevPhase := suncalc.GetMoonIllumination(prev).Phase
	for cur := start.Add(moonScanStep); !cur.After(end); cur = cur.Add(moonScanStep) {
		phase := suncalc.GetMoonIllumination(cur).Phase
		// Phase increases monotonically within a lunation and wraps from
		// just under 1 back to 0 at the new moon.
		if phase < prevPhase {
			instant := bisectNewMoon(prev, cur).In(zone)
			if instant.Year() == year {
				dates = append(dates, instant.Format("Jan 02"))
			}
		}
		prev, prevPhase = cur, phase
	}
	return dates
}

// bisectNewMoon narrows a bracketed phase wrap to the minute.
func bisectNewMoon(lo, hi time.Time) time.Time {
	for hi.Sub(lo) > time.Minute {
		mid := lo.Add(hi.Sub(lo) / 2)
		if suncalc.GetMoonIllumination(mid).Phase > 0.5 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo.Add(hi.Sub(lo) / 2)
}
