package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, geo, forecast http.HandlerFunc) *Client {
	t.Helper()
	geoSrv := httptest.NewServer(geo)
	t.Cleanup(geoSrv.Close)
	fcSrv := httptest.NewServer(forecast)
	t.Cleanup(fcSrv.Close)

	return New(Options{
		GeocodingURL: geoSrv.URL,
		ForecastURL:  fcSrv.URL,
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
	})
}

func TestCurrent(t *testing.T) {
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Paris", r.URL.Query().Get("name"))
			w.Write([]byte(`{"results":[{"name":"Paris","latitude":48.85,"longitude":2.35}]}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "48.85", q.Get("latitude"))
			assert.Equal(t, "2.35", q.Get("longitude"))
			assert.Equal(t, "temperature_2m", q.Get("hourly"))
			w.Write([]byte(`{"hourly":{"time":["2026-03-01T00:00"],"temperature_2m":[12.34,13.0]}}`))
		},
	)

	report, err := c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "The current temperature in Paris is 12.3 degrees Celsius.", report)
}

func TestCurrent_UnknownCity(t *testing.T) {
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"generationtime_ms":0.5}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("forecast must not be requested for an unknown city")
		},
	)

	report, err := c.Current(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I couldn't find the weather for Atlantis.", report)
}

func TestCurrent_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"results":[{"name":"Oslo","latitude":59.91,"longitude":10.75}]}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"hourly":{"temperature_2m":[-4]}}`))
		},
	)

	report, err := c.Current(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "The current temperature in Oslo is -4.0 degrees Celsius.", report)
}

func TestCurrent_Errors(t *testing.T) {
	okGeo := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"name":"Rome","latitude":41.9,"longitude":12.5}]}`))
	}

	tests := []struct {
		name     string
		geo      http.HandlerFunc
		forecast http.HandlerFunc
		wantErr  string
	}{
		{
			name: "geocoding down",
			geo: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			forecast: func(w http.ResponseWriter, r *http.Request) {},
			wantErr:  "geocode Rome",
		},
		{
			name: "client error is not retried",
			geo: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("bad name"))
			},
			forecast: func(w http.ResponseWriter, r *http.Request) {},
			wantErr:  "unexpected status 400: bad name",
		},
		{
			name: "empty forecast",
			geo:  okGeo,
			forecast: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"hourly":{"temperature_2m":[]}}`))
			},
			wantErr: errNoTemperature.Error(),
		},
		{
			name: "null temperature",
			geo:  okGeo,
			forecast: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"hourly":{"temperature_2m":[null]}}`))
			},
			wantErr: errNoTemperature.Error(),
		},
		{
			name: "bad json",
			geo:  okGeo,
			forecast: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{`))
			},
			wantErr: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.geo, tt.forecast)
			_, err := c.Current(context.Background(), "Rome")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCurrent_Cancelled(t *testing.T) {
	c := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		func(w http.ResponseWriter, r *http.Request) {},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Current(ctx, "Rome")
	assert.ErrorIs(t, err, context.Canceled)
}
