package stargaze

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/forecast"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
	"github.com/wmarcoyu/starchasers-dataserver/internal/observability"
	"github.com/wmarcoyu/starchasers-dataserver/internal/score"
	"github.com/wmarcoyu/starchasers-dataserver/internal/store"
)

const (
	detroitLat = 42.3314
	detroitLng = -83.0458

	testDate    = "20230701"
	testInstant = "12"
)

// Coarse coordinate axes keep fixture grids small. Detroit resolves to
// cell (1, 1).
var (
	testLats = []float64{90, 45, 0, -45, -90}
	testLngs = []float64{0, 90, 180, 270}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeParks map[string]store.Park

func (f fakeParks) Park(_ context.Context, id string) (store.Park, error) {
	p, ok := f[id]
	if !ok {
		return store.Park{}, domain.Errorf(domain.InvalidInput, "no park with id %q", id)
	}
	return p, nil
}

// writeDataset builds a complete fixture dataset with clear-sky values.
func writeDataset(t *testing.T, dataDir string) {
	t.Helper()
	values := map[string]float64{"cloud": 10, "humidity": 15, "aerosol": 0.05}
	rows, cols := len(testLats), len(testLngs)

	base := filepath.Join(dataDir, testDate, testInstant)
	for _, kind := range []domain.DatasetKind{domain.DatasetGFS, domain.DatasetGEFS} {
		dir := filepath.Join(base, string(kind))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for _, variable := range forecast.Variables(kind) {
			for _, hour := range forecast.Hours(kind) {
				data := make([]float64, rows*cols)
				for i := range data {
					data[i] = values[variable]
				}
				path := filepath.Join(dir, forecast.GridFileName(variable, hour))
				require.NoError(t, grid.WriteArray(path, []int{rows, cols}, data))
			}
		}
	}
	marker := filepath.Join(base, forecast.CompletionMarker)
	require.NoError(t, os.WriteFile(marker, []byte("Complete at test.\n"), 0o644))
}

func testShowers() []MeteorShower {
	return []MeteorShower{
		{Name: "Perseids", BeginDate: "2023/07/17", EndDate: "2023/08/24", MaxDate: "2023/08/13", Rate: 100},
		{Name: "Geminids", BeginDate: "2023/12/04", EndDate: "2023/12/17", MaxDate: "2023/12/14", Rate: 150},
		{Name: "Quadrantids", BeginDate: "2024/01/01", EndDate: "2024/01/06", MaxDate: "2024/01/03", Rate: 120},
	}
}

func newTestService(t *testing.T, parks ParkDirectory) *Service {
	t.Helper()
	dataDir := t.TempDir()
	writeDataset(t, dataDir)

	assets, err := grid.NewAssets(testLats, testLngs)
	require.NoError(t, err)

	raster := make([]float64, len(testLats)*len(testLngs))
	for i := range raster {
		raster[i] = 1
	}
	lightMap := grid.NewLightPollutionMap(assets, &grid.Array{
		Shape: []int{len(testLats), len(testLngs)},
		Data:  raster,
	})

	var conversion [3][3][3]int
	for c := 0; c < 3; c++ {
		for h := 0; h < 3; h++ {
			for a := 0; a < 3; a++ {
				rating := 5 - c - h - a
				if rating < 1 {
					rating = 1
				}
				conversion[c][h][a] = rating
			}
		}
	}

	scores := score.NewTable([4][5]int{
		{4, 4, 3, 2, 1},
		{4, 3, 3, 2, 1},
		{3, 3, 2, 2, 1},
		{2, 2, 1, 1, 1},
	})

	return NewForTesting(dataDir, assets, lightMap, forecast.NewConversionTable(conversion),
		scores, testShowers(), parks, discardLogger(), observability.NewMetricsForTesting())
}

func TestTransparencyForecast(t *testing.T) {
	svc := newTestService(t, nil)
	q := Query{Lat: detroitLat, Lng: detroitLng, HasCoords: true, ReferenceDate: testDate}

	out, err := svc.TransparencyForecast(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, "2023070112", out.Timestamp)
	assert.Equal(t, "America/Detroit", out.Timezone)
	assert.Equal(t, detroitLat, out.Lat)
	assert.Equal(t, detroitLng, out.Lng)

	// Dataset base 12:00 UTC is 08:00 local; 72 hours span four local dates.
	require.Len(t, out.Data, 4)
	total := 0
	for _, hours := range out.Data {
		total += len(hours)
	}
	assert.Equal(t, domain.ForecastHours, total)

	first, ok := out.Data["2023/07/01"]
	require.True(t, ok)
	assert.Equal(t, HourData{Transparency: 5, Cloud: 10, Humidity: 15, Aerosol: 0.05}, first["08"])
	_, ok = first["07"]
	assert.False(t, ok, "hours before the dataset base must be absent")

	require.Len(t, out.DarkHours, 4)
	for _, night := range out.DarkHours {
		sunset, err := time.Parse(eventLayout, night.Sunset)
		require.NoError(t, err)
		sunrise, err := time.Parse(eventLayout, night.Sunrise)
		require.NoError(t, err)
		assert.True(t, sunset.Before(sunrise))
	}

	require.Len(t, out.MoonActivity, domain.WindowsPerRequest)
	for _, w := range out.MoonActivity {
		assert.NotEmpty(t, w.Moonset)
		assert.NotEmpty(t, w.Moonrise)
	}

	assert.Equal(t, "21.57°", out.MilkyWay.MaxAngle)
	require.Len(t, out.MilkyWay.Activity, 4)
	for _, w := range out.MilkyWay.Activity {
		_, err := time.Parse(transitLayout, w.Transit)
		assert.NoError(t, err)
	}

	assert.Contains(t, []string{"S", "A", "B", "C", noScore}, out.Score)
}

func TestTransparencyForecast_ParkQuery(t *testing.T) {
	parks := fakeParks{
		"42": {ID: "42", Lat: detroitLat, Lng: detroitLng,
			Name: "Pinnacles", Admin: "Michigan", Country: "United States", Bortle: 5},
	}
	svc := newTestService(t, parks)

	out, err := svc.TransparencyForecast(context.Background(), Query{ParkID: "42", ReferenceDate: testDate})
	require.NoError(t, err)
	assert.Equal(t, detroitLat, out.Lat)
	assert.Equal(t, "America/Detroit", out.Timezone)

	_, err = svc.TransparencyForecast(context.Background(), Query{ParkID: "nope", ReferenceDate: testDate})
	assert.True(t, domain.IsKind(err, domain.InvalidInput))
}

func TestTransparencyForecast_Errors(t *testing.T) {
	svc := newTestService(t, nil)

	t.Run("no park database", func(t *testing.T) {
		_, err := svc.TransparencyForecast(context.Background(), Query{ParkID: "42"})
		assert.True(t, domain.IsKind(err, domain.InvalidInput))
	})

	t.Run("neither park nor coordinates", func(t *testing.T) {
		_, err := svc.TransparencyForecast(context.Background(), Query{})
		assert.True(t, domain.IsKind(err, domain.InvalidInput))
	})

	t.Run("coordinates out of range", func(t *testing.T) {
		_, err := svc.TransparencyForecast(context.Background(),
			Query{Lat: 95, Lng: 0, HasCoords: true, ReferenceDate: testDate})
		assert.True(t, domain.IsKind(err, domain.InvalidInput))
	})

	t.Run("no complete dataset", func(t *testing.T) {
		_, err := svc.TransparencyForecast(context.Background(),
			Query{Lat: detroitLat, Lng: detroitLng, HasCoords: true, ReferenceDate: "20200101"})
		assert.True(t, domain.IsKind(err, domain.DataUnavailable))
	})
}

func TestAlmanac(t *testing.T) {
	svc := newTestService(t, nil)
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	out, err := svc.Almanac(context.Background(), Query{Lat: detroitLat, Lng: detroitLng, HasCoords: true})
	require.NoError(t, err)

	assert.Equal(t, detroitLat, out.Lat)
	assert.Equal(t, "America/Detroit", out.Timezone)
	assert.Equal(t, "2023", out.Year)
	assert.Equal(t, 1, out.Bortle)
	assert.Equal(t, "21.57°", out.MilkyWaySeason.MaxAngle)
	assert.NotEmpty(t, out.MilkyWaySeason.Start)
	assert.NotEmpty(t, out.MilkyWaySeason.End)
	assert.Len(t, out.NewMoonDates, 12)
	assert.Equal(t, "Perseids", out.NextMeteorShower.Name)
}

func TestAlmanac_ParkBortle(t *testing.T) {
	parks := fakeParks{
		"42": {ID: "42", Lat: detroitLat, Lng: detroitLng,
			Name: "Pinnacles", Admin: "Michigan", Country: "United States", Bortle: 3},
	}
	svc := newTestService(t, parks)
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	out, err := svc.Almanac(context.Background(), Query{ParkID: "42"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Bortle)
}

func TestNextMeteorShower(t *testing.T) {
	svc := NewForTesting("", nil, nil, nil, nil, testShowers(), nil, discardLogger(),
		observability.NewMetricsForTesting())

	shower, err := svc.nextMeteorShower("2023/12/20")
	require.NoError(t, err)
	assert.Equal(t, "Quadrantids", shower.Name) // rolls over into next January

	shower, err = svc.nextMeteorShower("2023/12/14")
	require.NoError(t, err)
	assert.Equal(t, "Geminids", shower.Name) // peak day still counts

	_, err = svc.nextMeteorShower("2077/01/01")
	assert.True(t, domain.IsKind(err, domain.DataUnavailable))
}

func TestLoadMeteorShowers(t *testing.T) {
	dir := t.TempDir()

	t.Run("sorts by peak date", func(t *testing.T) {
		path := filepath.Join(dir, "showers.json")
		payload, err := json.Marshal(map[string][]MeteorShower{"data": {
			{Name: "Geminids", MaxDate: "2023/12/14"},
			{Name: "Perseids", MaxDate: "2023/08/13"},
		}})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, payload, 0o644))

		showers, err := LoadMeteorShowers(path)
		require.NoError(t, err)
		require.Len(t, showers, 2)
		assert.Equal(t, "Perseids", showers[0].Name)
	})

	t.Run("empty table", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"data": []}`), 0o644))
		_, err := LoadMeteorShowers(path)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
		_, err := LoadMeteorShowers(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadMeteorShowers(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})
}

func TestParkName(t *testing.T) {
	parks := fakeParks{
		"42": {ID: "42", Name: "Pinnacles", Admin: "Michigan", Country: "United States"},
	}
	svc := newTestService(t, parks)

	name, err := svc.ParkName(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Pinnacles, Michigan, United States", name)

	_, err = svc.ParkName(context.Background(), "")
	assert.True(t, domain.IsKind(err, domain.InvalidInput))

	_, err = svc.ParkName(context.Background(), "nope")
	assert.True(t, domain.IsKind(err, domain.InvalidInput))

	bare := newTestService(t, nil)
	_, err = bare.ParkName(context.Background(), "42")
	assert.True(t, domain.IsKind(err, domain.InvalidInput))
}

func TestCheckReadiness(t *testing.T) {
	svc := newTestService(t, nil)
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2023, 7, 1, 18, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	assert.NoError(t, svc.CheckReadiness(context.Background()))

	empty := NewForTesting(t.TempDir(), nil, nil, nil, nil, nil, nil, discardLogger(),
		observability.NewMetricsForTesting())
	err := empty.CheckReadiness(context.Background())
	assert.True(t, domain.IsKind(err, domain.DataUnavailable))
}
