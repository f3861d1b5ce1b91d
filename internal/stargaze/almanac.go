package stargaze

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/wmarcoyu/starchasers-dataserver/internal/astro"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// MeteorShower is one entry of the static meteor shower table. Dates are
// "YYYY/MM/DD" strings; the table sorts ascending by MaxDate.
type MeteorShower struct {
	Name      string `json:"name"`
	BeginDate string `json:"begin_date"`
	EndDate   string `json:"end_date"`
	MaxDate   string `json:"max_date"`
	Rate      int    `json:"hourly_rate"`
}

type meteorShowerTable struct {
	Data []MeteorShower `json:"data"`
}

// LoadMeteorShowers reads the meteor shower table asset.
func LoadMeteorShowers(path string) ([]MeteorShower, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meteor shower table: %w", err)
	}
	var table meteorShowerTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse meteor shower table %s: %w", path, err)
	}
	if len(table.Data) == 0 {
		return nil, fmt.Errorf("meteor shower table %s is empty", path)
	}
	sort.Slice(table.Data, func(i, j int) bool { return table.Data[i].MaxDate < table.Data[j].MaxDate })
	return table.Data, nil
}

// MilkyWaySeasonContext is the season block of the almanac.
type MilkyWaySeasonContext struct {
	MaxAngle string `json:"max_angle"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// AlmanacContext is the yearly almanac response for one location.
type AlmanacContext struct {
	Lat              float64               `json:"lat"`
	Lng              float64               `json:"lng"`
	Timezone         string                `json:"timezone"`
	Year             string                `json:"year"`
	MilkyWaySeason   MilkyWaySeasonContext `json:"milky_way_season"`
	NewMoonDates     []string              `json:"new_moon_dates"`
	Bortle           int                   `json:"bortle"`
	NextMeteorShower MeteorShower          `json:"next_meteor_shower"`
}

// Almanac serves the yearly almanac: the Milky Way season, the new moons of
// the current year, the local Bortle class and the next meteor shower peak.
func (s *Service) Almanac(ctx context.Context, q Query) (*AlmanacContext, error) {
	loc, _, err := s.location(ctx, q)
	if err != nil {
		return nil, err
	}

	now := domain.Clock().Now().In(loc.Zone())
	year := now.Year()

	season, err := astro.MilkyWaySeason(loc, year)
	if err != nil {
		return nil, err
	}

	bortle, err := s.bortle(ctx, q, loc)
	if err != nil {
		return nil, err
	}

	shower, err := s.nextMeteorShower(now.Format(dateKeyLayout))
	if err != nil {
		return nil, err
	}

	return &AlmanacContext{
		Lat:      loc.Lat,
		Lng:      loc.Lng,
		Timezone: loc.Timezone,
		Year:     fmt.Sprintf("%d", year),
		MilkyWaySeason: MilkyWaySeasonContext{
			MaxAngle: fmt.Sprintf("%.2f°", astro.MaxTransitAltitude(loc.Lat)),
			Start:    season.Start,
			End:      season.End,
		},
		NewMoonDates:     astro.NewMoonDates(year, loc.Zone()),
		Bortle:           bortle,
		NextMeteorShower: shower,
	}, nil
}

// nextMeteorShower returns the first table entry peaking on or after today
// (a "YYYY/MM/DD" string).
func (s *Service) nextMeteorShower(today string) (MeteorShower, error) {
	for _, shower := range s.showers {
		if shower.MaxDate >= today {
			return shower, nil
		}
	}
	return MeteorShower{}, domain.Errorf(domain.DataUnavailable, "no meteor shower on or after %s in the table", today)
}
