package external

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"surfcast/internal/surf"
	"surfcast/internal/types"
)

const (
	coopsDateFormat = "20060102"
	coopsTimeFormat = "2006-01-02 15:04"
)

// TideClient reads high/low water predictions from the CO-OPS data getter.
type TideClient struct {
	base        *BaseClient
	baseURL     string
	application string
}

// NewTideClient creates a TideClient. application identifies the caller to
// CO-OPS and is sent on every request.
func NewTideClient(base *BaseClient, baseURL, application string) *TideClient {
	return &TideClient{base: base, baseURL: baseURL, application: application}
}

type predictionResponse struct {
	Predictions []struct {
		T    string `json:"t"`
		V    string `json:"v"`
		Type string `json:"type"`
	} `json:"predictions"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HighLow returns the predicted highs and lows at station between start and
// end, in metres above MLLW, ordered by time.
func (c *TideClient) HighLow(ctx context.Context, station string, start, end time.Time) ([]surf.TideEvent, error) {
	q := url.Values{}
	q.Set("begin_date", start.UTC().Format(coopsDateFormat))
	q.Set("end_date", end.UTC().Format(coopsDateFormat))
	q.Set("station", station)
	q.Set("product", "predictions")
	q.Set("datum", "MLLW")
	q.Set("interval", "hilo")
	q.Set("units", "metric")
	q.Set("time_zone", "gmt")
	q.Set("format", "json")
	q.Set("application", c.application)

	body, err := c.base.Get(ctx, c.baseURL+"?"+q.Encode(), "application/json")
	if err != nil {
		return nil, err
	}

	var doc predictionResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTides, "failed to decode tide predictions", err)
	}
	// CO-OPS reports bad stations with a 200 and an error object.
	if doc.Error != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamTides, doc.Error.Message, nil,
			map[string]any{"station": station})
	}

	events := make([]surf.TideEvent, 0, len(doc.Predictions))
	for _, p := range doc.Predictions {
		t, err := time.Parse(coopsTimeFormat, p.T)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamTides, "bad prediction time "+p.T, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.V), 64)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamTides, "bad prediction level "+p.V, err)
		}
		events = append(events, surf.TideEvent{Time: t, WaterLevel: v, Event: p.Type})
	}
	return events, nil
}
