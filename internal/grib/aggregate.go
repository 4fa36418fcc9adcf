package grib

import (
	"math"
	"time"
)

// Series is a set of windows flattened into per-field columns. Every column
// has exactly len(Times) entries, in window order. NaN marks a field that was
// absent from the window at that index.
type Series struct {
	Times  []time.Time
	Values map[string][]float64
}

// Len returns the number of windows.
func (s Series) Len() int { return len(s.Times) }

// At returns the value of key at index i, and false when the field is absent
// there or the index is out of range.
func (s Series) At(key string, i int) (float64, bool) {
	col, ok := s.Values[key]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	v := col[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Has reports whether any window carried key.
func (s Series) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}

// Aggregate flattens windows into columns. Windows are kept in the order
// given; nil entries are skipped.
func Aggregate(windows []*TimeWindow) Series {
	s := Series{Values: make(map[string][]float64)}
	for _, w := range windows {
		if w == nil {
			continue
		}
		idx := len(s.Times)
		s.Times = append(s.Times, w.ValidTime)
		for key, f := range w.Fields {
			col, ok := s.Values[key]
			if !ok {
				col = nanColumn(idx)
			}
			s.Values[key] = append(col, f.Value)
		}
		for key, col := range s.Values {
			if len(col) == idx {
				s.Values[key] = append(col, math.NaN())
			}
		}
	}
	return s
}

func nanColumn(n int) []float64 {
	col := make([]float64, n, n+1)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
