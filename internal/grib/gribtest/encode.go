// Package gribtest builds small GRIB2 messages for tests.
package gribtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// Code table values used by the builders.
const (
	DisciplineMeteo   = 0
	DisciplineOceanic = 10

	CategoryWaves    = 0
	CategoryMomentum = 2

	SurfaceGround      = 1
	SurfaceHeightAbove = 103
	SurfaceOrderedSeq  = 241
	surfaceMissing     = 255

	// LevelMissing marks a fixed surface without a value.
	LevelMissing = 0xFFFFFFFF
)

// Wave parameter numbers in discipline 10, category 0.
const (
	ParamSignificantHeight = 3
	ParamWindWaveDirection = 4
	ParamWindWaveHeight    = 5
	ParamWindWavePeriod    = 6
	ParamSwellDirection    = 7
	ParamSwellHeight       = 8
	ParamSwellPeriod       = 9
)

// Grid is a regular lat/lon grid.
type Grid struct {
	Ni, Nj   int
	La1, Lo1 float64
	La2, Lo2 float64
	Di, Dj   float64
	ScanMode uint8
}

// Points is the number of grid points.
func (g Grid) Points() int { return g.Ni * g.Nj }

// Grid3x3 is centred on 38.5N 285.0E (75W) with 0.5 degree spacing.
func Grid3x3() Grid {
	return Grid{Ni: 3, Nj: 3, La1: 39.0, Lo1: 284.5, La2: 38.0, Lo2: 285.5, Di: 0.5, Dj: 0.5}
}

// Message describes one field. NaN values are masked through the bitmap.
type Message struct {
	Discipline uint8
	Category   uint8
	Number     uint8
	Surface    uint8
	Level      uint32
	Ref        time.Time
	FcstHours  uint32
	Grid       Grid
	Values     []float64
}

// Wave is a surface wave parameter on Grid3x3 with every point set to v.
func Wave(number uint8, ref time.Time, fcstHours uint32, v float64) Message {
	return Message{
		Discipline: DisciplineOceanic,
		Category:   CategoryWaves,
		Number:     number,
		Surface:    SurfaceGround,
		Level:      LevelMissing,
		Ref:        ref,
		FcstHours:  fcstHours,
		Grid:       Grid3x3(),
		Values:     Uniform(9, v),
	}
}

// Swell is a partitioned swell parameter at the given partition level.
func Swell(number uint8, level uint32, ref time.Time, fcstHours uint32, v float64) Message {
	m := Wave(number, ref, fcstHours, v)
	m.Surface = SurfaceOrderedSeq
	m.Level = level
	return m
}

// Uniform returns n copies of v.
func Uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Concat joins encoded messages into one buffer.
func Concat(msgs ...[]byte) []byte {
	return bytes.Join(msgs, nil)
}

func putSignMagnitude32(b []byte, v int64) {
	u := uint32(v)
	if v < 0 {
		u = uint32(-v) | 0x80000000
	}
	binary.BigEndian.PutUint32(b, u)
}

func putSignMagnitude16(b []byte, v int) {
	u := uint16(v)
	if v < 0 {
		u = uint16(-v) | 0x8000
	}
	binary.BigEndian.PutUint16(b, u)
}

func section(num uint8, body []byte) []byte {
	sec := make([]byte, 5+len(body))
	binary.BigEndian.PutUint32(sec[0:4], uint32(len(sec)))
	sec[4] = num
	copy(sec[5:], body)
	return sec
}

func microDeg(v float64) int64 { return int64(math.Round(v * 1e6)) }

// Encode builds the message with simple packing at two decimal digits.
func Encode(m Message) []byte {
	var body bytes.Buffer

	s1 := make([]byte, 21)
	binary.BigEndian.PutUint32(s1[0:4], 21)
	s1[4] = 1
	binary.BigEndian.PutUint16(s1[5:7], 7)
	binary.BigEndian.PutUint16(s1[12:14], uint16(m.Ref.Year()))
	s1[14] = byte(m.Ref.Month())
	s1[15] = byte(m.Ref.Day())
	s1[16] = byte(m.Ref.Hour())
	s1[17] = byte(m.Ref.Minute())
	s1[18] = byte(m.Ref.Second())
	body.Write(s1)

	s3 := make([]byte, 72)
	binary.BigEndian.PutUint32(s3[0:4], 72)
	s3[4] = 3
	binary.BigEndian.PutUint32(s3[6:10], uint32(m.Grid.Points()))
	binary.BigEndian.PutUint32(s3[30:34], uint32(m.Grid.Ni))
	binary.BigEndian.PutUint32(s3[34:38], uint32(m.Grid.Nj))
	putSignMagnitude32(s3[46:50], microDeg(m.Grid.La1))
	putSignMagnitude32(s3[50:54], microDeg(m.Grid.Lo1))
	putSignMagnitude32(s3[55:59], microDeg(m.Grid.La2))
	putSignMagnitude32(s3[59:63], microDeg(m.Grid.Lo2))
	putSignMagnitude32(s3[63:67], microDeg(m.Grid.Di))
	putSignMagnitude32(s3[67:71], microDeg(m.Grid.Dj))
	s3[71] = m.Grid.ScanMode
	body.Write(s3)

	s4 := make([]byte, 34)
	binary.BigEndian.PutUint32(s4[0:4], 34)
	s4[4] = 4
	s4[9] = m.Category
	s4[10] = m.Number
	s4[17] = 1 // hours
	binary.BigEndian.PutUint32(s4[18:22], m.FcstHours)
	s4[22] = m.Surface
	binary.BigEndian.PutUint32(s4[24:28], m.Level)
	s4[28] = surfaceMissing
	body.Write(s4)

	const decScale = 2
	minVal := math.Inf(1)
	var present []float64
	bitmap := make([]byte, (len(m.Values)+7)/8)
	masked := false
	for k, v := range m.Values {
		if math.IsNaN(v) {
			masked = true
			continue
		}
		bitmap[k/8] |= 0x80 >> (k % 8)
		present = append(present, v)
		minVal = math.Min(minVal, v*100)
	}
	if len(present) == 0 {
		minVal = 0
	}
	ref := float32(minVal)

	s5 := make([]byte, 21)
	binary.BigEndian.PutUint32(s5[0:4], 21)
	s5[4] = 5
	binary.BigEndian.PutUint32(s5[5:9], uint32(len(present)))
	binary.BigEndian.PutUint32(s5[11:15], math.Float32bits(ref))
	putSignMagnitude16(s5[15:17], 0)
	putSignMagnitude16(s5[17:19], decScale)
	s5[19] = 16
	body.Write(s5)

	if masked {
		body.Write(section(6, append([]byte{0}, bitmap...)))
	} else {
		body.Write(section(6, []byte{255}))
	}

	packed := make([]byte, 2*len(present))
	for i, v := range present {
		binary.BigEndian.PutUint16(packed[2*i:], uint16(math.Round(v*100-float64(ref))))
	}
	body.Write(section(7, packed))
	body.WriteString("7777")

	msg := make([]byte, 16, 16+body.Len())
	copy(msg, "GRIB")
	msg[6] = m.Discipline
	msg[7] = 2
	msg = append(msg, body.Bytes()...)
	binary.BigEndian.PutUint64(msg[8:16], uint64(len(msg)))
	return msg
}
