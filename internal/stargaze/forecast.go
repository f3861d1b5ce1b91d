package stargaze

import (
	"context"
	"fmt"
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/astro"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/forecast"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
	"github.com/wmarcoyu/starchasers-dataserver/internal/score"
)

// Layouts of the presentation strings. Dates and hours key the data map;
// events render with minutes, transits with the clock time only.
const (
	dateKeyLayout = "2006/01/02"
	hourKeyLayout = "15"
	eventLayout   = "2006/01/02 15:04"
	transitLayout = "15:04"
)

// noScore is served when the dark windows yield too few scored hours.
const noScore = "No available score"

// HourData is the forecast of one local hour.
type HourData struct {
	Transparency int     `json:"transparency"`
	Cloud        float64 `json:"cloud"`
	Humidity     float64 `json:"humidity"`
	Aerosol      float64 `json:"aerosol"`
}

// DarkHours is one night's sun-free interval.
type DarkHours struct {
	Sunset  string `json:"sunset"`
	Sunrise string `json:"sunrise"`
}

// MoonActivity is one moonset-then-moonrise pair.
type MoonActivity struct {
	Moonset  string `json:"moonset"`
	Moonrise string `json:"moonrise"`
}

// MilkyWayActivity is one galactic center visibility window.
type MilkyWayActivity struct {
	Rise    string `json:"rise"`
	Set     string `json:"set"`
	Transit string `json:"transit"`
}

// MilkyWay groups the location's maximum galactic center altitude with its
// upcoming visibility windows.
type MilkyWay struct {
	MaxAngle string             `json:"max_angle"`
	Activity []MilkyWayActivity `json:"activity"`
}

// ForecastContext is the full transparency forecast response: hourly data
// bucketed by local date, the astronomical events of the covered nights and
// the aggregate score.
type ForecastContext struct {
	Data         map[string]map[string]HourData `json:"data"`
	Timestamp    string                         `json:"timestamp"`
	Timezone     string                         `json:"timezone"`
	Lat          float64                        `json:"lat"`
	Lng          float64                        `json:"lng"`
	DarkHours    []DarkHours                    `json:"dark_hours"`
	MoonActivity []MoonActivity                 `json:"moon_activity"`
	MilkyWay     MilkyWay                       `json:"milky_way"`
	Score        string                         `json:"score"`
}

// TransparencyForecast serves the 72-hour stargazing forecast for a query.
func (s *Service) TransparencyForecast(ctx context.Context, q Query) (*ForecastContext, error) {
	loc, _, err := s.location(ctx, q)
	if err != nil {
		return nil, err
	}
	idx, err := s.assets.CellIndex(loc.Lat, loc.Lng)
	if err != nil {
		return nil, err
	}

	gfs, err := s.assemble(domain.DatasetGFS, idx, q.ReferenceDate)
	if err != nil {
		return nil, err
	}
	gefs, err := s.assemble(domain.DatasetGEFS, idx, q.ReferenceDate)
	if err != nil {
		return nil, err
	}
	if gfs.Timestamp != gefs.Timestamp {
		s.metrics.TimestampMismatches.Inc()
	}
	series := forecast.Merge(gfs, gefs, s.logger)
	if err := forecast.Classify(series, s.conversion); err != nil {
		return nil, err
	}

	out := &ForecastContext{
		Data:      make(map[string]map[string]HourData),
		Timestamp: series.Timestamp,
		Timezone:  loc.Timezone,
		Lat:       loc.Lat,
		Lng:       loc.Lng,
	}

	// Bucket the contiguous series by local calendar date.
	localBase := series.Base.In(loc.Zone())
	var dates []string
	for h := 0; h < domain.ForecastHours; h++ {
		cur := localBase.Add(time.Duration(h) * time.Hour)
		dateKey := cur.Format(dateKeyLayout)
		if _, ok := out.Data[dateKey]; !ok {
			out.Data[dateKey] = make(map[string]HourData)
			dates = append(dates, dateKey)
		}
		out.Data[dateKey][cur.Format(hourKeyLayout)] = HourData{
			Transparency: series.Transparency[h],
			Cloud:        series.Cloud[h],
			Humidity:     series.Humidity[h],
			Aerosol:      series.Aerosol[h],
		}
	}

	// Event windows anchor at the first covered local date and advance one
	// calendar day per window.
	anchor := time.Date(localBase.Year(), localBase.Month(), localBase.Day(), 0, 0, 0, 0, time.UTC)

	sunWindows, err := astro.DarkWindows(loc, astro.Sun, anchor, len(dates))
	if err != nil {
		return nil, err
	}
	moonWindows, err := astro.DarkWindows(loc, astro.Moon, anchor, domain.WindowsPerRequest)
	if err != nil {
		return nil, err
	}
	gcWindows, err := astro.VisibilityWindows(loc, anchor, len(dates))
	if err != nil {
		return nil, err
	}

	for _, w := range sunWindows {
		out.DarkHours = append(out.DarkHours, DarkHours{
			Sunset:  w.Set.Format(eventLayout),
			Sunrise: w.Rise.Format(eventLayout),
		})
	}
	for _, w := range moonWindows {
		out.MoonActivity = append(out.MoonActivity, MoonActivity{
			Moonset:  w.Set.Format(eventLayout),
			Moonrise: w.Rise.Format(eventLayout),
		})
	}
	out.MilkyWay.MaxAngle = fmt.Sprintf("%.2f°", astro.MaxTransitAltitude(loc.Lat))
	for _, w := range gcWindows {
		out.MilkyWay.Activity = append(out.MilkyWay.Activity, MilkyWayActivity{
			Rise:    w.Rise.Format(eventLayout),
			Set:     w.Set.Format(eventLayout),
			Transit: w.Transit.Format(transitLayout),
		})
	}

	out.Score, err = s.scoreForecast(ctx, q, loc, series, sunWindows)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// assemble builds one source series and records the lookup outcome.
func (s *Service) assemble(kind domain.DatasetKind, idx grid.Index, referenceDate string) (*domain.SourceSeries, error) {
	series, err := forecast.Assemble(s.dataDir, kind, idx, referenceDate)
	if err != nil {
		if domain.IsKind(err, domain.DataUnavailable) {
			s.metrics.DatasetLookups.WithLabelValues(string(kind), "miss").Inc()
		}
		return nil, err
	}
	s.metrics.DatasetLookups.WithLabelValues(string(kind), "hit").Inc()
	return series, nil
}

// scoreForecast scores every whole dark hour of the sun windows and grades
// the result. Hours that cannot be scored (outside the data horizon, or
// boundary instants the moon check rejects) are logged and skipped; the
// grade works off whatever remains.
func (s *Service) scoreForecast(ctx context.Context, q Query, loc domain.Location,
	series *domain.ForecastSeries, sunWindows []domain.DarkWindow) (string, error) {
	bortle, err := s.bortle(ctx, q, loc)
	if err != nil {
		return "", err
	}

	var scores []int
	for _, w := range sunWindows {
		start := ceilHour(w.Set)
		end := floorHour(w.Rise)
		for hour := start; hour.Before(end); hour = hour.Add(time.Hour) {
			hs, err := score.Hourly(s.scores, series, bortle, loc.Lat, loc.Lng, hour.UTC())
			if err != nil {
				if domain.IsKind(err, domain.MissingData) || domain.IsKind(err, domain.InvalidInput) {
					s.logger.Warn("skipping dark hour", "hour", hour.Format(eventLayout), "error", err)
					s.metrics.HoursSkipped.Inc()
					continue
				}
				return "", err
			}
			scores = append(scores, hs)
		}
	}

	grade, err := score.Grade(scores)
	if err != nil {
		if domain.IsKind(err, domain.InsufficientData) {
			s.logger.Warn("not enough scored hours for a grade", "scored", len(scores))
			return noScore, nil
		}
		return "", err
	}
	return string(grade), nil
}

// floorHour truncates to the previous whole local hour.
func floorHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// ceilHour rounds up to the next whole local hour.
func ceilHour(t time.Time) time.Time {
	f := floorHour(t)
	if t.After(f) {
		return f.Add(time.Hour)
	}
	return f
}
