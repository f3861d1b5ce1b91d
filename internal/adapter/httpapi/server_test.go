package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
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
	"github.com/wmarcoyu/starchasers-dataserver/internal/stargaze"
	"github.com/wmarcoyu/starchasers-dataserver/internal/store"
)

const (
	detroitQuery = "lat=42.3314&lng=-83.0458"
	testInstant  = "12"
)

var (
	testLats = []float64{90, 45, 0, -45, -90}
	testLngs = []float64{0, 90, 180, 270}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAuth struct {
	tokens map[string]string
	err    error
}

func (a *fakeAuth) Authenticate(_ context.Context, username, token string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	stored, ok := a.tokens[username]
	return ok && stored == token, nil
}

type fakeParks map[string]store.Park

func (f fakeParks) Park(_ context.Context, id string) (store.Park, error) {
	p, ok := f[id]
	if !ok {
		return store.Park{}, domain.Errorf(domain.InvalidInput, "no park with id %q", id)
	}
	return p, nil
}

// writeDataset builds a complete clear-sky dataset for one date and instant.
func writeDataset(t *testing.T, dataDir, date string) {
	t.Helper()
	values := map[string]float64{"cloud": 10, "humidity": 15, "aerosol": 0.05}
	rows, cols := len(testLats), len(testLngs)

	base := filepath.Join(dataDir, date, testInstant)
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

func newTestServer(t *testing.T, auth Authenticator, dates ...string) *Server {
	t.Helper()
	dataDir := t.TempDir()
	for _, date := range dates {
		writeDataset(t, dataDir, date)
	}

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

	showers := []stargaze.MeteorShower{
		{Name: "Perseids", BeginDate: "2023/07/17", EndDate: "2023/08/24", MaxDate: "2023/08/13", Rate: 100},
		{Name: "Geminids", BeginDate: "9999/12/04", EndDate: "9999/12/17", MaxDate: "9999/12/14", Rate: 150},
	}

	parks := fakeParks{
		"42": {ID: "42", Lat: 42.3314, Lng: -83.0458,
			Name: "Pinnacles", Admin: "Michigan", Country: "United States", Bortle: 4},
	}

	service := stargaze.NewForTesting(dataDir, assets, lightMap,
		forecast.NewConversionTable(conversion), scores, showers, parks,
		discardLogger(), observability.NewMetricsForTesting())

	return NewServer(":0", service, auth, discardLogger(), observability.NewMetricsForTesting())
}

func get(srv *Server, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := get(srv, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestReady(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2023, 7, 1, 18, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	srv := newTestServer(t, nil, "20230701")
	rec := get(srv, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])

	empty := newTestServer(t, nil)
	rec = get(empty, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", decodeBody(t, rec)["status"])
}

func TestAuthentication(t *testing.T) {
	auth := &fakeAuth{tokens: map[string]string{"appserver": "secret"}}
	srv := newTestServer(t, auth, testReferenceDate)

	t.Run("missing credentials", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/?"+detroitQuery+"&test=1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "check username and input token", decodeBody(t, rec)["error"])
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/?"+detroitQuery+"&test=1",
			map[string]string{"Username": "appserver", "Token": "wrong"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := get(srv, "/api/almanac/?"+detroitQuery,
			map[string]string{"Username": "intruder", "Token": "secret"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("lookup failure", func(t *testing.T) {
		broken := newTestServer(t, &fakeAuth{err: errors.New("db down")})
		rec := get(broken, "/api/transparency-forecast/?"+detroitQuery,
			map[string]string{"Username": "appserver", "Token": "secret"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", decodeBody(t, rec)["error"])
	})

	t.Run("valid credentials", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/?"+detroitQuery+"&test=1",
			map[string]string{"Username": "appserver", "Token": "secret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTransparencyForecastEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, testReferenceDate)

	t.Run("coordinates with fixture data", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/?"+detroitQuery+"&test=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, testReferenceDate+testInstant, body["timestamp"])
		assert.Equal(t, "America/Detroit", body["timezone"])
		assert.NotEmpty(t, body["data"])
		assert.NotEmpty(t, body["dark_hours"])
		assert.NotEmpty(t, body["score"])
	})

	t.Run("park query", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/?park_id=42&test=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "America/Detroit", decodeBody(t, rec)["timezone"])
	})

	t.Run("missing parameters", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed latitude", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/?lat=north&lng=-83.05&test=1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("coordinates out of range", func(t *testing.T) {
		rec := get(srv, "/api/transparency-forecast/?lat=95&lng=0&test=1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no dataset", func(t *testing.T) {
		empty := newTestServer(t, nil)
		rec := get(empty, "/api/transparency-forecast/?"+detroitQuery+"&test=1", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAlmanacEndpoint(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	srv := newTestServer(t, nil)
	rec := get(srv, "/api/almanac/?"+detroitQuery, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "2023", body["year"])
	assert.Equal(t, "America/Detroit", body["timezone"])
	assert.Equal(t, float64(1), body["bortle"])
	assert.Len(t, body["new_moon_dates"], 12)

	shower, ok := body["next_meteor_shower"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Perseids", shower["name"])
}

func TestParkNameEndpoint(t *testing.T) {
	// Park lookups carry no credentials even when auth is configured.
	srv := newTestServer(t, &fakeAuth{tokens: map[string]string{"appserver": "secret"}})

	rec := get(srv, "/api/get-park-name/?park_id=42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pinnacles, Michigan, United States", decodeBody(t, rec)["fullname"])

	rec = get(srv, "/api/get-park-name/?park_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(srv, "/api/get-park-name/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := get(srv, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseQuery(t *testing.T) {
	t.Run("test parameter pins the reference date", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/transparency-forecast/?"+detroitQuery+"&test=1", nil)
		q, err := parseQuery(req)
		require.NoError(t, err)
		assert.Equal(t, testReferenceDate, q.ReferenceDate)
		assert.True(t, q.HasCoords)
		assert.Equal(t, 42.3314, q.Lat)
	})

	t.Run("park id skips coordinates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/almanac/?park_id=42", nil)
		q, err := parseQuery(req)
		require.NoError(t, err)
		assert.Equal(t, "42", q.ParkID)
		assert.False(t, q.HasCoords)
		assert.Empty(t, q.ReferenceDate)
	})

	t.Run("lone latitude", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/almanac/?lat=42.33", nil)
		_, err := parseQuery(req)
		assert.True(t, domain.IsKind(err, domain.InvalidInput))
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(http.StatusOK))
	assert.Equal(t, "client_error", outcome(http.StatusBadRequest))
	assert.Equal(t, "server_error", outcome(http.StatusInternalServerError))
}
