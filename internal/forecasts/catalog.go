package forecasts

import (
	"fmt"
	"math"
	"net/url"
	"time"
)

// Model is one NOAA GFS-Wave output grid.
type Model struct {
	// Name is the grid identifier used in file names, e.g. "atlocn.0p16".
	Name        string
	Description string
	MinLat      float64
	MaxLat      float64
	// Longitudes in [0, 360).
	MinLon     float64
	MaxLon     float64
	Resolution float64
}

// Regional grids are tried in order; the first containing the point wins.
var regionalModels = []Model{
	{Name: "atlocn.0p16", Description: "GFS Wave Atlantic 0.16 deg", MinLat: 0, MaxLat: 55, MinLon: 260, MaxLon: 310, Resolution: 0.167},
	{Name: "wcoast.0p16", Description: "GFS Wave US West Coast 0.16 deg", MinLat: 25, MaxLat: 50.0, MinLon: 210, MaxLon: 250, Resolution: 0.167},
	{Name: "gsouth.0p25", Description: "GFS Wave Southern Ocean 0.25 deg", MinLat: -79.5, MaxLat: -10.5, MinLon: 0, MaxLon: 359.75, Resolution: 0.25},
	{Name: "epacif.0p16", Description: "GFS Wave East Pacific 0.16 deg", MinLat: -20, MaxLat: 30, MinLon: 130, MaxLon: 280, Resolution: 0.167},
}

// GlobalModel is used when no regional grid covers a point.
var GlobalModel = Model{
	Name: "global.0p25", Description: "GFS Wave Global 0.25 deg",
	MinLat: -90, MaxLat: 90, MinLon: 0, MaxLon: 359.75, Resolution: 0.25,
}

// Contains reports whether the grid covers lat/lon (lon in either convention).
func (m Model) Contains(lat, lon float64) bool {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lat >= m.MinLat && lat <= m.MaxLat && lon >= m.MinLon && lon <= m.MaxLon
}

// SelectModel picks the regional grid for a point, falling back to the global grid.
func SelectModel(lat, lon float64) Model {
	for _, m := range regionalModels {
		if m.Contains(lat, lon) {
			return m
		}
	}
	return GlobalModel
}

// ModelByName looks up a grid by its identifier.
func ModelByName(name string) (Model, bool) {
	if name == GlobalModel.Name {
		return GlobalModel, true
	}
	for _, m := range regionalModels {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// ForecastHours lists the output steps up to maxHour: hourly through 120 h,
// three-hourly after that.
func ForecastHours(maxHour int) []int {
	var hours []int
	for h := 0; h <= maxHour; {
		hours = append(hours, h)
		if h < 120 {
			h++
		} else {
			h += 3
		}
	}
	return hours
}

// FileName is the GRIB file for one step of a run.
func (m Model) FileName(run time.Time, hour int) string {
	return fmt.Sprintf("gfswave.t%02dz.%s.f%03d.grib2", run.Hour(), m.Name, hour)
}

// RunDir is the directory of a run relative to the GFS root.
func (m Model) RunDir(run time.Time) string {
	return fmt.Sprintf("gfs.%s/%02d/wave/gridded", run.Format("20060102"), run.Hour())
}

// GribURLs builds NOMADS grib filter requests for every step up to maxHour,
// restricted to a box of padding degrees around lat/lon.
func (m Model) GribURLs(baseURL string, run time.Time, maxHour int, lat, lon, padding float64) []string {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	hours := ForecastHours(maxHour)
	urls := make([]string, 0, len(hours))
	for _, h := range hours {
		q := url.Values{}
		q.Set("dir", "/"+m.RunDir(run))
		q.Set("file", m.FileName(run, h))
		q.Set("all_var", "on")
		q.Set("all_lev", "on")
		q.Set("subregion", "")
		q.Set("toplat", fmt.Sprintf("%.3f", lat+padding))
		q.Set("bottomlat", fmt.Sprintf("%.3f", lat-padding))
		q.Set("leftlon", fmt.Sprintf("%.3f", lon-padding))
		q.Set("rightlon", fmt.Sprintf("%.3f", lon+padding))
		urls = append(urls, baseURL+"?"+q.Encode())
	}
	return urls
}
