package grib

import (
	"time"

	"surfcast/internal/grib/gribtest"
)

func waveField(number uint8, ref time.Time, fcstHours uint32, values []float64) gribtest.Message {
	m := gribtest.Wave(number, ref, fcstHours, 0)
	m.Values = values
	return m
}

func encode(m gribtest.Message) []byte { return gribtest.Encode(m) }

func concat(msgs ...[]byte) []byte { return gribtest.Concat(msgs...) }

func uniform(v float64) []float64 { return gribtest.Uniform(9, v) }
