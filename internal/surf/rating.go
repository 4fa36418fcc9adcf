package surf

// Rating is the qualitative surf quality for one hour.
type Rating string

const (
	RatingPoor Rating = "Poor"
	RatingFair Rating = "Fair"
	RatingGood Rating = "Good"
	RatingEpic Rating = "Epic"
)

// Score rates an hour from its breaking height in feet, swell period in
// seconds, wind speed in knots and normalized tide level. Each input
// contributes up to two points.
func Score(waveHeightFt, periodS, windKnots, tideLevel float64) Rating {
	total := scoreHeight(waveHeightFt) + scorePeriod(periodS) + scoreWind(windKnots) + scoreTide(tideLevel)
	switch {
	case total >= 7:
		return RatingEpic
	case total >= 5:
		return RatingGood
	case total >= 3:
		return RatingFair
	default:
		return RatingPoor
	}
}

func scoreHeight(ft float64) int {
	switch {
	case ft < 1.5:
		return 0
	case ft <= 4.5:
		return 2
	case ft <= 7:
		return 1
	default:
		return 0
	}
}

func scorePeriod(s float64) int {
	switch {
	case s < 8:
		return 0
	case s < 11:
		return 1
	default:
		return 2
	}
}

func scoreWind(knots float64) int {
	switch {
	case knots <= 6:
		return 2
	case knots <= 12:
		return 1
	default:
		return 0
	}
}

func scoreTide(level float64) int {
	switch {
	case level >= 0.4 && level <= 0.6:
		return 2
	case level >= 0.25 && level <= 0.75:
		return 1
	default:
		return 0
	}
}

// CombinedSwellPeriod is the energy-weighted mean period,
// sum(T * H^2) / sum(H^2), or 0 when no component carries energy.
func CombinedSwellPeriod(components []SwellComponent) float64 {
	var weighted, energy float64
	for _, c := range components {
		e := c.Height * c.Height
		weighted += c.Period * e
		energy += e
	}
	if energy <= 0 {
		return 0
	}
	return weighted / energy
}
