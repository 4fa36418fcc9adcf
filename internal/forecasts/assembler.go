package forecasts

import (
	"log/slog"
	"math"
	"time"

	"surfcast/internal/grib"
	"surfcast/internal/surf"
	"surfcast/internal/types"
)

// State describes how much of a forecast run produced data.
type State string

const (
	StateNoData   State = "no_data"
	StatePartial  State = "partial"
	StateComplete State = "complete"
)

// Placeholder strings shown to users.
const (
	NoForecastAvailable = "No forecast available"
	NoRatingAvailable   = "No surf rating currently available"
	NoAlerts            = "None"
)

// HourlyEntry is one hour of the published forecast. Heights are feet,
// wind speed knots.
type HourlyEntry struct {
	Date              time.Time `json:"date"`
	MaxBreakingHeight *float64  `json:"max_breaking_height"`
	MinBreakingHeight *float64  `json:"min_breaking_height"`
	AirTemperature    *float64  `json:"air_temperature"`
	WindDirection     *float64  `json:"wind_direction"`
	WindSpeed         *float64  `json:"wind_speed"`
	ShortForecast     *string   `json:"short_forecast"`
	WaveHeight        *float64  `json:"wave_height"`
	SurfRating        string    `json:"surf_rating"`
	SwellPeriod       *float64  `json:"swell_period"`
}

// TideEntry is one predicted high or low water.
type TideEntry struct {
	Date       time.Time `json:"date"`
	TidalEvent string    `json:"tidal_event"`
}

// Record is the complete forecast for one location.
type Record struct {
	LocationID       string        `json:"location_id"`
	SelectedLocation string        `json:"selected_location"`
	WaveModel        string        `json:"wave_model"`
	State            State         `json:"state"`
	GeneratedAt      time.Time     `json:"generated_at"`
	WeatherAlerts    string        `json:"weather_alerts"`
	HourlyForecast   []HourlyEntry `json:"hourly_forecast"`
	TideForecast     []TideEntry   `json:"tide_forecast"`
}

// IsEmpty reports whether the record is the no-forecast sentinel.
func (r *Record) IsEmpty() bool {
	return r.State == StateNoData
}

// Policy holds the assembler's tunable behavior.
type Policy struct {
	// StrictIncidentAngle discards the whole run when any hour has every
	// swell arriving from behind the beach. When false only that hour is nulled.
	StrictIncidentAngle bool
	WindAdjustment      bool
	JettyShadowing      bool
	TideStepHours       float64
}

// DefaultPolicy matches the production configuration.
func DefaultPolicy() Policy {
	return Policy{StrictIncidentAngle: true, TideStepHours: 3}
}

// AssemblyInput is everything gathered for one location run.
type AssemblyInput struct {
	Location      types.SurfLocation
	Geometry      types.BeachGeometry
	Model         string
	Series        grib.Series
	Weather       []types.WeatherPoint
	AlertHeadline string
	TideEvents    []surf.TideEvent
	GeneratedAt   time.Time
}

// Assembler joins model, weather and tide data into a Record.
type Assembler struct {
	calc   *surf.Calculator
	policy Policy
	logger *slog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(policy Policy, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.TideStepHours <= 0 {
		policy.TideStepHours = 3
	}
	return &Assembler{calc: surf.NewCalculator(logger), policy: policy, logger: logger}
}

// qualityProxyFields are all-zero only when the model output is broken.
var qualityProxyFields = []string{grib.NameWindWaveHeight, grib.NameWindWaveDirection, grib.NameTotalSwellHeight}

// Assemble builds the forecast record. It never fails: missing model data
// yields the empty sentinel, missing weather or tides yield null fields.
func (a *Assembler) Assemble(in AssemblyInput) *Record {
	if in.Series.Len() == 0 {
		a.logger.Warn("no wave data decoded", "location_id", in.Location.ID, "model", in.Model)
		return EmptyRecord(in)
	}
	if dataOutage(in.Series) {
		a.logger.Warn("wave model returned all-zero quality fields", "location_id", in.Location.ID, "model", in.Model)
		return EmptyRecord(in)
	}

	tides := surf.Interpolate(in.TideEvents, a.policy.TideStepHours)
	hours := BuoyHours(in.Series)
	entries := make([]HourlyEntry, 0, len(hours))

	weatherIdx, tideIdx := 0, 0
	for _, h := range hours {
		var weather *types.WeatherPoint
		if len(in.Weather) > 0 {
			weatherIdx = staleForward(weatherIdx, len(in.Weather), func(i int) time.Time { return in.Weather[i].Time }, h.Time)
			weather = &in.Weather[weatherIdx]
		}
		var tide *surf.TideInterval
		if len(tides) > 0 {
			tideIdx = staleForward(tideIdx, len(tides), func(i int) time.Time { return tides[i].Time }, h.Time)
			tide = &tides[tideIdx]
		}

		var opts []surf.Option
		if a.policy.WindAdjustment && weather != nil && weather.WindSpeed != nil && weather.WindDirection != nil {
			opts = append(opts, surf.WithWind(surf.Wind{SpeedKnots: *weather.WindSpeed, Direction: *weather.WindDirection}))
		}
		if a.policy.JettyShadowing {
			opts = append(opts, surf.WithJettyShadowing())
		}
		res := a.calc.Compute(surf.Conditions{Units: surf.Metric, Components: h.Components}, in.Geometry, opts...)

		entry := HourlyEntry{Date: h.Time, SurfRating: NoRatingAvailable}
		period := surf.CombinedSwellPeriod(h.Components)
		rounded := math.Round(period)
		entry.SwellPeriod = &rounded
		if h.WaveHeight != nil {
			entry.WaveHeight = feet(*h.WaveHeight)
		}
		if weather != nil {
			entry.AirTemperature = finite(weather.AirTemperature)
			entry.WindDirection = finite(weather.WindDirection)
			entry.WindSpeed = finite(weather.WindSpeed)
			if weather.ShortForecast != "" {
				sf := weather.ShortForecast
				entry.ShortForecast = &sf
			}
		}

		switch res.Status {
		case surf.BreakingInvalidAngle:
			if a.policy.StrictIncidentAngle {
				a.logger.Warn("swell arrives from behind the beach, discarding forecast",
					"location_id", in.Location.ID, "hour", h.Time, "orientation", in.Geometry.Orientation)
				return EmptyRecord(in)
			}
			entries = append(entries, entry)
			continue
		case surf.BreakingNoData:
			if !h.Observed {
				entries = append(entries, entry)
				continue
			}
		}

		entry.MaxBreakingHeight = feet(res.MaxHeight)
		entry.MinBreakingHeight = feet(res.MinHeight)
		if tide != nil && entry.WindSpeed != nil && entry.MaxBreakingHeight != nil {
			entry.SurfRating = string(surf.Score(*entry.MaxBreakingHeight, period, *entry.WindSpeed, tide.NormalizedLevel))
		}
		entries = append(entries, entry)
	}

	rec := &Record{
		LocationID:       in.Location.ID,
		SelectedLocation: in.Location.Name,
		WaveModel:        in.Model,
		State:            StatePartial,
		GeneratedAt:      in.GeneratedAt,
		WeatherAlerts:    alertText(in.AlertHeadline),
		HourlyForecast:   entries,
		TideForecast:     []TideEntry{},
	}
	if len(in.Weather) == 0 {
		a.logger.Warn("no weather forecast available", "location_id", in.Location.ID)
		return rec
	}
	for _, e := range in.TideEvents {
		rec.TideForecast = append(rec.TideForecast, TideEntry{Date: e.Time, TidalEvent: e.Event})
	}
	if len(tides) > 0 {
		rec.State = StateComplete
	}
	return rec
}

// EmptyRecord is the sentinel for "no forecast available": one placeholder
// hour with every value null.
func EmptyRecord(in AssemblyInput) *Record {
	return &Record{
		LocationID:       in.Location.ID,
		SelectedLocation: in.Location.Name,
		WaveModel:        in.Model,
		State:            StateNoData,
		GeneratedAt:      in.GeneratedAt,
		WeatherAlerts:    NoForecastAvailable,
		HourlyForecast: []HourlyEntry{{
			Date:       in.GeneratedAt,
			SurfRating: NoForecastAvailable,
		}},
		TideForecast: []TideEntry{},
	}
}

// dataOutage reports whether every quality proxy field is present and
// exactly zero for every hour it was reported.
func dataOutage(s grib.Series) bool {
	for _, key := range qualityProxyFields {
		col, ok := s.Values[key]
		if !ok {
			return false
		}
		present := false
		for _, v := range col {
			if math.IsNaN(v) {
				continue
			}
			if v != 0 {
				return false
			}
			present = true
		}
		if !present {
			return false
		}
	}
	return true
}

// staleForward advances idx while the next entry is not later than t.
func staleForward(idx, n int, at func(int) time.Time, t time.Time) int {
	for idx+1 < n && !at(idx+1).After(t) {
		idx++
	}
	return idx
}

func feet(m float64) *float64 {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return nil
	}
	v := surf.MetresToFeet(m)
	return &v
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}

func alertText(headline string) string {
	if headline == "" {
		return NoAlerts
	}
	return headline
}
