package astro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// Detroit, a mid-latitude observer where every tracked body rises and sets.
const (
	detroitLat = 42.3314
	detroitLng = -83.0458
)

func detroit(t *testing.T) domain.Location {
	t.Helper()
	zone, err := time.LoadLocation("America/Detroit")
	require.NoError(t, err)
	return domain.LocationForTesting(detroitLat, detroitLng, zone)
}

func TestMaxTransitAltitude(t *testing.T) {
	assert.InDelta(t, 90-(detroitLat-galacticDec), MaxTransitAltitude(detroitLat), 1e-9)

	// At the declination of the galactic center it passes through the zenith.
	assert.InDelta(t, 90, MaxTransitAltitude(galacticDec), 1e-9)

	// Far northern latitudes never see it rise.
	assert.Less(t, MaxTransitAltitude(70), 0.0)
}

func TestNextGalacticTransit(t *testing.T) {
	from := time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)

	transit := nextGalacticTransit(detroitLng, from)
	assert.True(t, transit.After(from))
	assert.Less(t, transit.Sub(from), 25*time.Hour)

	// Hour angle is zero at transit, so altitude equals the latitude maximum.
	assert.InDelta(t, 0, galacticHourAngle(detroitLng, transit), 0.01)
	assert.InDelta(t, MaxTransitAltitude(detroitLat),
		galacticAltitude(detroitLat, detroitLng, transit), 0.01)

	// The following transit is one sidereal day later.
	next := nextGalacticTransit(detroitLng, transit.Add(time.Minute))
	assert.InDelta(t, (360/siderealRate)*24, next.Sub(transit).Hours(), 0.01)
}

func TestNextCrossing(t *testing.T) {
	from := time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)

	t.Run("sun rises and sets near the horizon", func(t *testing.T) {
		rise, err := NextRising(Sun, detroitLat, detroitLng, from)
		require.NoError(t, err)
		set, err := NextSetting(Sun, detroitLat, detroitLng, from)
		require.NoError(t, err)

		assert.True(t, rise.After(from))
		assert.True(t, set.After(from))
		assert.InDelta(t, 0, Altitude(Sun, detroitLat, detroitLng, rise), 0.2)
		assert.InDelta(t, 0, Altitude(Sun, detroitLat, detroitLng, set), 0.2)

		// Shortly after rising the sun is up, shortly before it is not.
		assert.Greater(t, Altitude(Sun, detroitLat, detroitLng, rise.Add(20*time.Minute)), 0.0)
		assert.Less(t, Altitude(Sun, detroitLat, detroitLng, rise.Add(-20*time.Minute)), 0.0)
	})

	t.Run("polar day has no sunset", func(t *testing.T) {
		// Svalbard in July: the sun never goes below the horizon.
		_, err := NextSetting(Sun, 78.22, 15.65, from)
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.InconsistentEphemeris))
	})
}

func TestOrderedPair(t *testing.T) {
	anchor := time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)
	at := func(offset time.Duration) eventFn {
		return func(a time.Time) (time.Time, error) { return a.Add(offset), nil }
	}

	t.Run("already ordered", func(t *testing.T) {
		a, b, err := orderedPair(at(1*time.Hour), at(2*time.Hour), anchor)
		require.NoError(t, err)
		assert.True(t, a.Before(b))
	})

	t.Run("one-day shift restores order", func(t *testing.T) {
		// Second event lands before the first from the original anchor but
		// after it from the shifted anchor.
		a, b, err := orderedPair(at(10*time.Hour), at(2*time.Hour), anchor)
		require.NoError(t, err)
		assert.Equal(t, anchor.Add(10*time.Hour), a)
		assert.Equal(t, anchor.AddDate(0, 0, 1).Add(2*time.Hour), b)
	})

	t.Run("still unordered after shift fails", func(t *testing.T) {
		_, _, err := orderedPair(at(72*time.Hour), at(2*time.Hour), anchor)
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.InconsistentEphemeris))
	})
}

func TestDarkWindows(t *testing.T) {
	loc := detroit(t)
	date := time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)

	for _, body := range []Body{Sun, Moon} {
		t.Run(body.String(), func(t *testing.T) {
			windows, err := DarkWindows(loc, body, date, domain.WindowsPerRequest)
			require.NoError(t, err)
			require.Len(t, windows, domain.WindowsPerRequest)
			for _, w := range windows {
				assert.True(t, w.Set.Before(w.Rise), "set %s not before rise %s", w.Set, w.Rise)
				assert.Equal(t, loc.Zone(), w.Set.Location())
				assert.Equal(t, loc.Zone(), w.Rise.Location())
			}
		})
	}
}

func TestVisibilityWindows(t *testing.T) {
	loc := detroit(t)
	date := time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)

	windows, err := VisibilityWindows(loc, date, domain.WindowsPerRequest)
	require.NoError(t, err)
	require.Len(t, windows, domain.WindowsPerRequest)
	for _, w := range windows {
		assert.True(t, w.Rise.Before(w.Transit), "rise %s not before transit %s", w.Rise, w.Transit)
		assert.False(t, w.Transit.After(w.Set), "transit %s after set %s", w.Transit, w.Set)
	}
}

func TestMoonFree(t *testing.T) {
	t.Run("rejects non-UTC input", func(t *testing.T) {
		zone, err := time.LoadLocation("America/Detroit")
		require.NoError(t, err)
		_, err = MoonFree(detroitLat, detroitLng, time.Date(2023, time.July, 1, 4, 0, 0, 0, zone))
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.InvalidInput))
	})

	t.Run("rejects partial hours", func(t *testing.T) {
		_, err := MoonFree(detroitLat, detroitLng, time.Date(2023, time.July, 1, 4, 30, 0, 0, time.UTC))
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.InvalidInput))
	})

	t.Run("full moon overnight is not moon free", func(t *testing.T) {
		// 2023-07-03 was a full moon; the moon is up all night in Detroit.
		free, err := MoonFree(detroitLat, detroitLng, time.Date(2023, time.July, 4, 3, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, free)
	})

	t.Run("boundary instants decide", func(t *testing.T) {
		// Both ends of an hour below the horizon make the hour moon free.
		rise, err := NextRising(Moon, detroitLat, detroitLng, time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		start := rise.Truncate(time.Hour).Add(-2 * time.Hour).UTC()
		free, err := MoonFree(detroitLat, detroitLng, start)
		require.NoError(t, err)
		assert.True(t, free)
	})
}

func TestNewMoonDates(t *testing.T) {
	dates := NewMoonDates(2023, time.UTC)
	assert.Len(t, dates, 12)
	assert.Contains(t, dates, "Jan 21")
}

func TestMilkyWaySeason(t *testing.T) {
	season, err := MilkyWaySeason(detroit(t), 2023)
	require.NoError(t, err)
	assert.NotEmpty(t, season.Start)
	assert.NotEmpty(t, season.End)
}
