package forecasts

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectModel(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"ocean city md", 38.3, -75.0, "atlocn.0p16"},
		{"huntington beach", 33.6, -118.0, "wcoast.0p16"},
		{"hawaii", 21.6, -158.1, "epacif.0p16"},
		{"bells beach", -38.4, 144.3, "gsouth.0p25"},
		{"portugal", 39.6, -9.1, "global.0p25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectModel(tt.lat, tt.lon).Name)
		})
	}
}

func TestModelByName(t *testing.T) {
	m, ok := ModelByName("wcoast.0p16")
	require.True(t, ok)
	assert.Equal(t, 0.167, m.Resolution)

	_, ok = ModelByName("global.0p25")
	assert.True(t, ok)

	_, ok = ModelByName("nope")
	assert.False(t, ok)
}

func TestForecastHours(t *testing.T) {
	hours := ForecastHours(126)
	assert.Equal(t, 0, hours[0])
	assert.Equal(t, 120, hours[120])
	assert.Equal(t, []int{123, 126}, hours[121:])

	assert.Len(t, ForecastHours(384), 121+88)
}

func TestGribURLs(t *testing.T) {
	run := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	m := regionalModels[0]
	urls := m.GribURLs("https://nomads.example/cgi-bin/filter_gfswave.pl", run, 2, 38.3, -75.0, 1)
	require.Len(t, urls, 3)

	u, err := url.Parse(urls[2])
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/gfs.20240701/06/wave/gridded", q.Get("dir"))
	assert.Equal(t, "gfswave.t06z.atlocn.0p16.f002.grib2", q.Get("file"))
	assert.Equal(t, "284.000", q.Get("leftlon"))
	assert.Equal(t, "286.000", q.Get("rightlon"))
	assert.Equal(t, "39.300", q.Get("toplat"))
	assert.True(t, strings.HasPrefix(urls[0], "https://nomads.example/cgi-bin/filter_gfswave.pl?"))
}
