package surf

import (
	"log/slog"
	"math"

	"surfcast/internal/types"
)

// BreakingStatus distinguishes a computed result from the two empty cases.
type BreakingStatus int

const (
	// BreakingValid means at least one component reached the beach.
	BreakingValid BreakingStatus = iota
	// BreakingNoData means there were no swell components to work with.
	BreakingNoData
	// BreakingInvalidAngle means every component arrived from behind the beach.
	BreakingInvalidAngle
)

func (s BreakingStatus) String() string {
	switch s {
	case BreakingValid:
		return "valid"
	case BreakingNoData:
		return "no_data"
	case BreakingInvalidAngle:
		return "invalid_incident_angle"
	default:
		return "unknown"
	}
}

// BreakingResult is the combined breaking height range for one hour, in the
// units of the conditions it was computed from.
type BreakingResult struct {
	MaxHeight float64
	MinHeight float64
	Units     Units
	Status    BreakingStatus
	// Excluded counts components rejected for arriving from behind the beach.
	Excluded int
}

const (
	breakingCoefficient = 0.8
	waveGroupRatio      = 1.4
	maxIncidentAngle    = 90.0
	jettyShadowFactor   = 0.7
	jettyShadowSpread   = 90.0
)

// Wind is the surface wind for one hour. Direction is where it blows from.
type Wind struct {
	SpeedKnots float64
	Direction  float64
}

// WindClass is the wind's relation to the beach.
type WindClass string

const (
	WindOnshore   WindClass = "onshore"
	WindSideshore WindClass = "sideshore"
	WindOffshore  WindClass = "offshore"
)

// ClassifyWind places a wind direction relative to the beach orientation.
func ClassifyWind(direction, orientation float64) WindClass {
	rel := AngularDistance(direction, orientation)
	switch {
	case rel <= 45:
		return WindOnshore
	case rel <= 135:
		return WindSideshore
	default:
		return WindOffshore
	}
}

const strongWindKnots = 13.0

// windAdjustment is the additive height change in metres.
func windAdjustment(w Wind, orientation float64) float64 {
	class := ClassifyWind(w.Direction, orientation)
	if w.SpeedKnots >= strongWindKnots {
		switch class {
		case WindOnshore:
			return -0.4
		case WindSideshore:
			return -0.15
		default:
			return 0.1
		}
	}
	if class == WindOffshore {
		return 0.2
	}
	return 0
}

// AngularDistance is the smallest angle between two compass bearings, in [0, 180].
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Option adjusts a single Compute call.
type Option func(*computeOptions)

type computeOptions struct {
	wind  *Wind
	jetty bool
}

// WithWind applies the onshore/sideshore/offshore height adjustment.
func WithWind(w Wind) Option {
	return func(o *computeOptions) { o.wind = &w }
}

// WithJettyShadowing applies the jetty obstruction multiplier.
func WithJettyShadowing() Option {
	return func(o *computeOptions) { o.jetty = true }
}

// Calculator turns swell components into a breaking height range.
type Calculator struct {
	logger *slog.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{logger: logger}
}

// Compute transforms each component to the beach, drops those arriving from
// behind it, and combines the rest by root-sum-square. Work is done in metres
// and the result is returned in c.Units.
func (calc *Calculator) Compute(c Conditions, g types.BeachGeometry, opts ...Option) BreakingResult {
	var o computeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(c.Components) == 0 {
		return BreakingResult{Units: c.Units, Status: BreakingNoData}
	}

	metric := c.WithUnits(Metric)
	var (
		sumSquares float64
		included   int
		excluded   int
		dominant   = math.NaN()
		strongest  float64
	)
	for _, comp := range metric.Components {
		angle := AngularDistance(comp.Direction, g.Orientation)
		if angle > maxIncidentAngle {
			excluded++
			continue
		}
		hb, _ := BreakingCharacteristics(comp.Period, angle, comp.Height, g.Slope, g.Depth)
		adjusted := breakingCoefficient * hb
		sumSquares += adjusted * adjusted
		included++
		if adjusted > strongest || math.IsNaN(dominant) {
			strongest = adjusted
			dominant = comp.Direction
		}
	}

	if included == 0 {
		calc.logger.Debug("all swell components arrive from behind the beach",
			"components", len(c.Components), "orientation", g.Orientation)
		return BreakingResult{Units: c.Units, Status: BreakingInvalidAngle, Excluded: excluded}
	}

	maxHeight := math.Sqrt(sumSquares)
	if o.wind != nil {
		maxHeight = math.Max(0, maxHeight+windAdjustment(*o.wind, g.Orientation))
	}
	if o.jetty {
		maxHeight *= jettyMultiplier(dominant, g.JettyObstructions)
	}

	return BreakingResult{
		MaxHeight: convertLength(maxHeight, Metric, c.Units),
		MinHeight: convertLength(maxHeight/waveGroupRatio, Metric, c.Units),
		Units:     c.Units,
		Status:    BreakingValid,
		Excluded:  excluded,
	}
}

func jettyMultiplier(direction float64, obstructions []float64) float64 {
	for _, o := range obstructions {
		if AngularDistance(direction, o) <= jettyShadowSpread {
			return jettyShadowFactor
		}
	}
	return 1
}
