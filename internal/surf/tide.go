package surf

import (
	"math"
	"time"
)

// Tide event codes as reported by NOAA CO-OPS.
const (
	TideHigh = "H"
	TideLow  = "L"
)

// Phase labels for ticks between two events.
const (
	LabelIncoming = "Incoming Tide"
	LabelEbb      = "Ebb Tide"
)

// TideEvent is one predicted high or low water.
type TideEvent struct {
	Time       time.Time `json:"date"`
	WaterLevel float64   `json:"water_level"`
	Event      string    `json:"tidal_event"`
}

// TideInterval is one interpolated tick between two events.
type TideInterval struct {
	Time            time.Time `json:"timestamp"`
	WaterLevel      float64   `json:"water_level"`
	NormalizedLevel float64   `json:"normalized_level"`
	Label           string    `json:"tidal_event"`
}

// Interpolate expands each consecutive pair of high/low events into
// floor(gap/stepHours)+1 evenly spaced ticks, both endpoints included, so the
// event shared by two pairs appears twice. Levels are normalized against the
// minimum and maximum of the whole event sequence. A pair closer together
// than one step yields just its two endpoints. Fewer than two events yields nil.
func Interpolate(events []TideEvent, stepHours float64) []TideInterval {
	if len(events) < 2 || stepHours <= 0 {
		return nil
	}

	lo, hi := events[0].WaterLevel, events[0].WaterLevel
	for _, e := range events[1:] {
		lo = math.Min(lo, e.WaterLevel)
		hi = math.Max(hi, e.WaterLevel)
	}

	out := make([]TideInterval, 0, len(events)*5)
	for i := 0; i < len(events)-1; i++ {
		start, end := events[i], events[i+1]
		step := time.Duration(stepHours * float64(time.Hour))
		n := int(math.Floor(end.Time.Sub(start.Time).Hours() / stepHours))
		if n < 1 {
			n = 1
			step = end.Time.Sub(start.Time)
		}
		delta := (end.WaterLevel - start.WaterLevel) / float64(n)

		phase := LabelEbb
		if end.Event == TideHigh {
			phase = LabelIncoming
		}

		for s := 0; s <= n; s++ {
			level := start.WaterLevel + delta*float64(s)
			label := phase
			switch s {
			case 0:
				label = start.Event
			case n:
				label = end.Event
			}
			out = append(out, TideInterval{
				Time:            start.Time.Add(time.Duration(s) * step),
				WaterLevel:      level,
				NormalizedLevel: normalize(level, lo, hi),
				Label:           label,
			})
		}
	}
	return out
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return math.Min(1, math.Max(0, (v-lo)/(hi-lo)))
}
