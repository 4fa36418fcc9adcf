package forecasts

import (
	"time"

	"surfcast/internal/grib"
	"surfcast/internal/surf"
)

// maxSwellPartitions is the number of swell partitions NOAA wave grids publish.
const maxSwellPartitions = 3

// BuoyHour is one model hour reduced to what the surf calculations need.
// Heights are metres.
type BuoyHour struct {
	Time       time.Time
	WaveHeight *float64
	Components []surf.SwellComponent
	// Observed is true when any swell field was present for the hour, even
	// if every component carried zero energy.
	Observed bool
}

type componentKeys struct {
	height, period, direction string
}

func swellKeys() []componentKeys {
	keys := make([]componentKeys, 0, maxSwellPartitions+1)
	for level := 1; level <= maxSwellPartitions; level++ {
		keys = append(keys, componentKeys{
			height:    grib.FieldKey(grib.NameSwellHeight, level, true),
			period:    grib.FieldKey(grib.NameSwellPeriod, level, true),
			direction: grib.FieldKey(grib.NameSwellDirection, level, true),
		})
	}
	return append(keys, componentKeys{grib.NameWindWaveHeight, grib.NameWindWavePeriod, grib.NameWindWaveDirection})
}

var totalSwellKeys = componentKeys{grib.NameTotalSwellHeight, grib.NameTotalSwellPeriod, grib.NameTotalSwellDir}

// BuoyHours converts the aggregated model series into per-hour swell
// components: the partitioned swells plus the wind sea. Grids that publish
// only total swell contribute that as a single component.
func BuoyHours(s grib.Series) []BuoyHour {
	keys := swellKeys()
	if !s.Has(keys[0].height) && s.Has(totalSwellKeys.height) {
		keys = append([]componentKeys{totalSwellKeys}, keys[maxSwellPartitions:]...)
	}

	hours := make([]BuoyHour, s.Len())
	for i, t := range s.Times {
		h := BuoyHour{Time: t}
		if v, ok := s.At(grib.NameSignificantHeight, i); ok {
			h.WaveHeight = &v
		}
		for _, k := range keys {
			height, okH := s.At(k.height, i)
			period, okP := s.At(k.period, i)
			dir, okD := s.At(k.direction, i)
			if okH {
				h.Observed = true
			}
			if !okH || !okP || !okD || height <= 0 || period <= 0 {
				continue
			}
			h.Components = append(h.Components, surf.SwellComponent{Height: height, Period: period, Direction: dir})
		}
		hours[i] = h
	}
	return hours
}
