package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfcast/internal/types"
)

func TestGribClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("file") {
		case "ok.grib2":
			w.Write([]byte("GRIB...7777"))
		case "late.grib2":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	client := NewGribClient(newTestClient(fastPolicy(0), WithUnavailableCode(types.ErrCodeUpstreamForecast)))
	ctx := context.Background()

	data, err := client.Fetch(ctx, server.URL+"?file=ok.grib2")
	require.NoError(t, err)
	assert.Equal(t, "GRIB...7777", string(data))

	data, err = client.Fetch(ctx, server.URL+"?file=late.grib2")
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = client.Fetch(ctx, server.URL+"?file=blocked.grib2")
	appErr := requireAppError(t, err, types.ErrCodeUpstreamForecast)
	assert.Equal(t, http.StatusForbidden, appErr.Details["status"])
}
