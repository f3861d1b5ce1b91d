package astro

import (
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// Season is the stretch of a year during which the galactic center is up
// during evening hours at a location. Boundaries are local calendar dates.
type Season struct {
	Start string
	End   string
}

// Evening bounds for season detection, local clock, compact HHMMSS form.
// The season opens on the first date the center rises inside the evening
// and closes on the first later date it sets inside the evening.
const (
	eveningOpen  = "180000"
	eveningClose = "235959"
)

// MilkyWaySeason scans the calendar year day by day and returns the local
// dates bounding the galactic center's evening visibility season. Returns
// InconsistentEphemeris when no season exists at the latitude.
func MilkyWaySeason(loc domain.Location, year int) (Season, error) {
	var season Season
	inSeason := false

	for day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); day.Year() == year; day = day.AddDate(0, 0, 1) {
		if !inSeason {
			rise, err := NextRising(GalacticCenter, loc.Lat, loc.Lng, day)
			if err != nil {
				return Season{}, err
			}
			if inEvening(rise.In(loc.Zone())) {
				season.Start = rise.In(loc.Zone()).Format("January 02")
				inSeason = true
			}
			continue
		}
		set, err := NextSetting(GalacticCenter, loc.Lat, loc.Lng, day)
		if err != nil {
			return Season{}, err
		}
		if inEvening(set.In(loc.Zone())) {
			season.End = set.In(loc.Zone()).Format("January 02")
			return season, nil
		}
	}

	return Season{}, domain.Errorf(domain.InconsistentEphemeris,
		"no milky way season found in %d at (%.4f, %.4f)", year, loc.Lat, loc.Lng)
}

// inEvening reports whether a local instant falls in (18:00:00, 23:59:59].
func inEvening(local time.Time) bool {
	hms := local.Format("150405")
	return hms > eveningOpen && hms <= eveningClose
}
