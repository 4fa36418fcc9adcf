package external

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"surfcast/internal/types"
)

// GribClient downloads GRIB2 subregions from the NOMADS filter service.
type GribClient struct {
	base *BaseClient
}

// NewGribClient creates a GribClient using base for transport.
func NewGribClient(base *BaseClient) *GribClient {
	return &GribClient{base: base}
}

// Fetch returns the GRIB2 bytes at url. NOMADS answers 404 for forecast
// hours that have not been produced yet; that case yields an empty tile
// and no error so the hour is reported as missing data.
func (c *GribClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build grib request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamForecast,
			fmt.Sprintf("grib filter returned %d", resp.StatusCode), nil,
			map[string]any{"status": resp.StatusCode})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "failed to read grib tile", err)
	}
	return data, nil
}
