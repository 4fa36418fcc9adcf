package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfcast/internal/surf"
	"surfcast/internal/types"
)

func TestTideClient_HighLow(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"predictions":[
			{"t":"2026-06-01 03:12","v":"0.102","type":"L"},
			{"t":"2026-06-01 09:30","v":" 1.451","type":"H"}
		]}`))
	}))
	defer server.Close()

	client := NewTideClient(newTestClient(fastPolicy(0)), server.URL, "surfcast")
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	events, err := client.HighLow(context.Background(), "8570283", start, start.Add(16*24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, []surf.TideEvent{
		{Time: time.Date(2026, 6, 1, 3, 12, 0, 0, time.UTC), WaterLevel: 0.102, Event: surf.TideLow},
		{Time: time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC), WaterLevel: 1.451, Event: surf.TideHigh},
	}, events)

	assert.Equal(t, "20260601", query.Get("begin_date"))
	assert.Equal(t, "20260617", query.Get("end_date"))
	assert.Equal(t, "8570283", query.Get("station"))
	assert.Equal(t, "predictions", query.Get("product"))
	assert.Equal(t, "MLLW", query.Get("datum"))
	assert.Equal(t, "hilo", query.Get("interval"))
	assert.Equal(t, "metric", query.Get("units"))
	assert.Equal(t, "gmt", query.Get("time_zone"))
	assert.Equal(t, "json", query.Get("format"))
	assert.Equal(t, "surfcast", query.Get("application"))
}

func TestTideClient_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"station error object", `{"error":{"message":"No Predictions data was found."}}`},
		{"bad level", `{"predictions":[{"t":"2026-06-01 03:12","v":"","type":"L"}]}`},
		{"bad time", `{"predictions":[{"t":"06/01/2026","v":"0.1","type":"L"}]}`},
		{"not json", `<html>maintenance</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewTideClient(newTestClient(fastPolicy(0)), server.URL, "surfcast")
			now := time.Now()
			_, err := client.HighLow(context.Background(), "9999999", now, now.Add(time.Hour))
			requireAppError(t, err, types.ErrCodeUpstreamTides)
		})
	}
}
