package grib

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrMalformed reports a record whose framing or section layout is broken.
	ErrMalformed = errors.New("grib: malformed record")
	// ErrUnsupported reports a valid record using a template this codec does not implement.
	ErrUnsupported = errors.New("grib: unsupported template")
	// ErrEmptyWindow reports a query box that contains no valid grid points.
	ErrEmptyWindow = errors.New("grib: no grid points inside window")
)

const (
	indicatorLen     = 16
	requiredSections = 1<<3 | 1<<4 | 1<<5
	endMarker        = "7777"
	missingInt32     = 0xFFFFFFFF
)

// maxGridPoints bounds allocations; the global 0.25 degree grid has about 1.04M points.
const maxGridPoints = 1 << 24

var marker = []byte("GRIB")

// Grid describes a regular latitude/longitude grid (template 3.0).
// Coordinates are in degrees; longitudes are kept in the grid's own
// convention, which for NOAA products is [0, 360).
type Grid struct {
	Ni, Nj   int
	La1, Lo1 float64
	La2, Lo2 float64
	Di, Dj   float64
	ScanMode uint8
}

// Points returns the number of grid points.
func (g Grid) Points() int { return g.Ni * g.Nj }

// LatLon returns the coordinates of the k-th point in storage order.
func (g Grid) LatLon(k int) (float64, float64) {
	i := k % g.Ni
	j := k / g.Ni

	latStep := g.Dj
	if g.La2 < g.La1 {
		latStep = -latStep
	}
	lonStep := g.Di
	if g.ScanMode&0x80 != 0 {
		lonStep = -lonStep
	}
	return g.La1 + float64(j)*latStep, normalizeLon(g.Lo1 + float64(i)*lonStep)
}

// Record is one decoded GRIB2 field.
type Record struct {
	Discipline     uint8
	ReferenceTime  time.Time
	ForecastOffset time.Duration
	Category       uint8
	Number         uint8
	SurfaceType    uint8
	Level          int
	HasLevel       bool
	Grid           Grid
	// Values holds one entry per grid point; NaN marks a point masked by the bitmap.
	Values []float64
}

// ValidTime is the time the field is valid for.
func (r *Record) ValidTime() time.Time {
	return r.ReferenceTime.Add(r.ForecastOffset)
}

// ShortName returns the parameter's short name, or a numeric fallback.
func (r *Record) ShortName() string {
	if name, ok := shortName(r.Discipline, r.Category, r.Number, r.SurfaceType); ok {
		return name
	}
	return fmt.Sprintf("p%d.%d.%d", r.Discipline, r.Category, r.Number)
}

// Key returns the field key with its level suffix applied.
func (r *Record) Key() string {
	return FieldKey(r.ShortName(), r.Level, r.HasLevel)
}

// MeanWithin averages every unmasked point with latitude in
// [lat-radius, lat+radius] and longitude within radius of lon.
func (r *Record) MeanWithin(lat, lon, radius float64) (float64, error) {
	lon = normalizeLon(lon)
	var sum float64
	var n int
	for k, v := range r.Values {
		if math.IsNaN(v) {
			continue
		}
		plat, plon := r.Grid.LatLon(k)
		if plat < lat-radius || plat > lat+radius {
			continue
		}
		if math.Abs(lonDelta(plon, lon)) > radius {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, ErrEmptyWindow
	}
	return sum / float64(n), nil
}

// Codec decodes single GRIB edition 2 messages.
type Codec struct{}

// DecodeRecord parses one complete message. Only the first field of a
// multi-field message is returned.
func (Codec) DecodeRecord(msg []byte) (*Record, error) {
	if len(msg) < indicatorLen+len(endMarker) || string(msg[:4]) != string(marker) {
		return nil, ErrMalformed
	}
	if msg[7] != 2 {
		return nil, fmt.Errorf("%w: edition %d", ErrUnsupported, msg[7])
	}
	total := binary.BigEndian.Uint64(msg[8:16])
	if total != uint64(len(msg)) {
		return nil, fmt.Errorf("%w: declared length %d, have %d", ErrMalformed, total, len(msg))
	}

	rec := &Record{Discipline: msg[6]}
	var (
		pack   packing
		bitmap []byte
		seen   uint8
	)

	off := indicatorLen
	for off < len(msg) {
		if len(msg)-off == len(endMarker) && string(msg[off:]) == endMarker {
			break
		}
		if len(msg)-off < 5 {
			return nil, ErrMalformed
		}
		secLen := int(binary.BigEndian.Uint32(msg[off : off+4]))
		if secLen < 5 || off+secLen > len(msg) {
			return nil, fmt.Errorf("%w: section length %d at offset %d", ErrMalformed, secLen, off)
		}
		sec := msg[off : off+secLen]
		num := sec[4]

		var err error
		switch num {
		case 1:
			rec.ReferenceTime, err = parseIdentification(sec)
		case 2:
			// local use, ignored
		case 3:
			rec.Grid, err = parseGrid(sec)
		case 4:
			err = parseProduct(sec, rec)
		case 5:
			pack, err = parsePacking(sec)
		case 6:
			bitmap, err = parseBitmap(sec, bitmap)
		case 7:
			if seen&requiredSections != requiredSections {
				return nil, fmt.Errorf("%w: data section before grid/product/packing", ErrMalformed)
			}
			rec.Values, err = unpack(sec[5:], pack, bitmap, rec.Grid.Points())
			if err != nil {
				return nil, err
			}
			return rec, nil
		default:
			err = fmt.Errorf("%w: unknown section %d", ErrMalformed, num)
		}
		if err != nil {
			return nil, err
		}
		if num < 8 {
			seen |= 1 << num
		}
		off += secLen
	}
	return nil, fmt.Errorf("%w: no data section", ErrMalformed)
}

func parseIdentification(sec []byte) (time.Time, error) {
	if len(sec) < 19 {
		return time.Time{}, ErrMalformed
	}
	year := int(binary.BigEndian.Uint16(sec[12:14]))
	return time.Date(year, time.Month(sec[14]), int(sec[15]), int(sec[16]), int(sec[17]), int(sec[18]), 0, time.UTC), nil
}

func parseGrid(sec []byte) (Grid, error) {
	if len(sec) < 14 {
		return Grid{}, ErrMalformed
	}
	if tmpl := binary.BigEndian.Uint16(sec[12:14]); tmpl != 0 {
		return Grid{}, fmt.Errorf("%w: grid template 3.%d", ErrUnsupported, tmpl)
	}
	if len(sec) < 72 {
		return Grid{}, ErrMalformed
	}
	g := Grid{
		Ni:       int(binary.BigEndian.Uint32(sec[30:34])),
		Nj:       int(binary.BigEndian.Uint32(sec[34:38])),
		La1:      microDegrees(sec[46:50]),
		Lo1:      microDegrees(sec[50:54]),
		La2:      microDegrees(sec[55:59]),
		Lo2:      microDegrees(sec[59:63]),
		Di:       microDegrees(sec[63:67]),
		Dj:       microDegrees(sec[67:71]),
		ScanMode: sec[71],
	}
	if g.Ni <= 0 || g.Nj <= 0 {
		return Grid{}, fmt.Errorf("%w: empty grid", ErrMalformed)
	}
	if g.Ni > maxGridPoints || g.Nj > maxGridPoints/g.Ni {
		return Grid{}, fmt.Errorf("%w: grid %dx%d too large", ErrMalformed, g.Ni, g.Nj)
	}
	if g.ScanMode&0x20 != 0 {
		return Grid{}, fmt.Errorf("%w: column-major scanning", ErrUnsupported)
	}
	return g, nil
}

func parseProduct(sec []byte, rec *Record) error {
	if len(sec) < 9 {
		return ErrMalformed
	}
	switch tmpl := binary.BigEndian.Uint16(sec[7:9]); tmpl {
	case 0, 1, 8:
	default:
		return fmt.Errorf("%w: product template 4.%d", ErrUnsupported, tmpl)
	}
	if len(sec) < 34 {
		return ErrMalformed
	}
	rec.Category = sec[9]
	rec.Number = sec[10]

	unit, ok := timeUnits[sec[17]]
	if !ok {
		return fmt.Errorf("%w: time range unit %d", ErrUnsupported, sec[17])
	}
	rec.ForecastOffset = time.Duration(signMagnitude32(sec[18:22])) * unit

	rec.SurfaceType = sec[22]
	scale := sec[23]
	raw := binary.BigEndian.Uint32(sec[24:28])
	if rec.SurfaceType != surfaceMissing && raw != missingInt32 {
		value := float64(signMagnitude32(sec[24:28]))
		if scale != 0xFF {
			value /= math.Pow10(int(int8(scale)))
		}
		rec.Level = int(math.Round(value))
		rec.HasLevel = true
	}
	return nil
}

// timeUnits is GRIB2 code table 4.4.
var timeUnits = map[uint8]time.Duration{
	0:  time.Minute,
	1:  time.Hour,
	2:  24 * time.Hour,
	10: 3 * time.Hour,
	11: 6 * time.Hour,
	12: 12 * time.Hour,
	13: time.Second,
}

// packing holds the simple-packing parameters of template 5.0.
type packing struct {
	count     int
	reference float64
	binScale  int
	decScale  int
	bits      int
}

func parsePacking(sec []byte) (packing, error) {
	if len(sec) < 11 {
		return packing{}, ErrMalformed
	}
	if tmpl := binary.BigEndian.Uint16(sec[9:11]); tmpl != 0 {
		return packing{}, fmt.Errorf("%w: data representation template 5.%d", ErrUnsupported, tmpl)
	}
	if len(sec) < 20 {
		return packing{}, ErrMalformed
	}
	p := packing{
		count:     int(binary.BigEndian.Uint32(sec[5:9])),
		reference: float64(math.Float32frombits(binary.BigEndian.Uint32(sec[11:15]))),
		binScale:  signMagnitude16(sec[15:17]),
		decScale:  signMagnitude16(sec[17:19]),
		bits:      int(sec[19]),
	}
	if p.bits > 32 {
		return packing{}, fmt.Errorf("%w: %d bits per value", ErrUnsupported, p.bits)
	}
	return p, nil
}

func parseBitmap(sec []byte, previous []byte) ([]byte, error) {
	if len(sec) < 6 {
		return nil, ErrMalformed
	}
	switch sec[5] {
	case 0:
		return sec[6:], nil
	case 254:
		return previous, nil
	case 255:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: predefined bitmap %d", ErrUnsupported, sec[5])
	}
}

// unpack expands simple-packed values into one float per grid point:
// Y = (R + X * 2^E) / 10^D.
func unpack(data []byte, p packing, bitmap []byte, points int) ([]float64, error) {
	if points <= 0 || points > maxGridPoints {
		return nil, fmt.Errorf("%w: %d grid points", ErrMalformed, points)
	}
	if bitmap != nil && len(bitmap)*8 < points {
		return nil, fmt.Errorf("%w: bitmap shorter than grid", ErrMalformed)
	}
	if bitmap == nil && p.count < points {
		return nil, fmt.Errorf("%w: %d packed values for %d grid points", ErrMalformed, p.count, points)
	}
	if p.count*p.bits > len(data)*8 {
		return nil, fmt.Errorf("%w: data section too short", ErrMalformed)
	}

	binFactor := math.Pow(2, float64(p.binScale))
	decFactor := math.Pow10(-p.decScale)

	values := make([]float64, points)
	br := bitReader{data: data}
	packed := 0
	for k := range values {
		if bitmap != nil && bitmap[k/8]&(0x80>>(k%8)) == 0 {
			values[k] = math.NaN()
			continue
		}
		if packed >= p.count {
			return nil, fmt.Errorf("%w: fewer packed values than grid points", ErrMalformed)
		}
		x := br.read(p.bits)
		values[k] = (p.reference + float64(x)*binFactor) * decFactor
		packed++
	}
	return values, nil
}

type bitReader struct {
	data []byte
	pos  int
}

func (b *bitReader) read(n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		byteIdx := b.pos / 8
		bit := (b.data[byteIdx] >> (7 - b.pos%8)) & 1
		v = v<<1 | uint64(bit)
		b.pos++
	}
	return v
}

// GRIB2 stores signed integers as sign-and-magnitude with the sign in the top bit.
func signMagnitude32(b []byte) int64 {
	u := binary.BigEndian.Uint32(b)
	v := int64(u & 0x7FFFFFFF)
	if u&0x80000000 != 0 {
		v = -v
	}
	return v
}

func signMagnitude16(b []byte) int {
	u := binary.BigEndian.Uint16(b)
	v := int(u & 0x7FFF)
	if u&0x8000 != 0 {
		v = -v
	}
	return v
}

func microDegrees(b []byte) float64 {
	return float64(signMagnitude32(b)) / 1e6
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// lonDelta returns a-b wrapped into [-180, 180).
func lonDelta(a, b float64) float64 {
	d := math.Mod(a-b+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
