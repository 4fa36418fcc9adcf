package grib

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"
)

// ErrNoData is returned when a buffer holds no decodable message. Callers
// treat it as an absent tile, not a pipeline failure.
var ErrNoData = errors.New("grib: no decodable messages")

// DefaultResolution is the half-width of the averaging window in degrees.
const DefaultResolution = 0.167

// Query is the point and window a buffer is sampled at.
type Query struct {
	Lat        float64
	Lon        float64
	Resolution float64
}

// Field is one named scalar sampled from a message.
type Field struct {
	Name     string
	Kind     Kind
	Level    int
	HasLevel bool
	Value    float64
}

// TimeWindow is the set of fields decoded for one forecast hour.
type TimeWindow struct {
	ValidTime time.Time
	Fields    map[string]Field
}

// Value looks up a field value by key.
func (w TimeWindow) Value(key string) (float64, bool) {
	f, ok := w.Fields[key]
	return f.Value, ok
}

// RecordDecoder decodes one self-contained message.
type RecordDecoder interface {
	DecodeRecord(msg []byte) (*Record, error)
}

// Decoder splits buffers into messages and samples each one.
// It holds no mutable state and is safe for concurrent use.
type Decoder struct {
	records RecordDecoder
	logger  *slog.Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithRecordDecoder replaces the GRIB2 codec.
func WithRecordDecoder(rd RecordDecoder) DecoderOption {
	return func(d *Decoder) { d.records = rd }
}

// NewDecoder creates a Decoder backed by the built-in GRIB2 codec.
func NewDecoder(logger *slog.Logger, opts ...DecoderOption) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Decoder{records: Codec{}, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode scans buf for messages and returns the fields sampled at q.
// Scanning stops at the first message whose declared length does not fit the
// remaining buffer. Messages that fail to decode are skipped. The window's
// time is that of the first decoded message; a later message with the same
// key replaces the earlier value.
func (d *Decoder) Decode(buf []byte, q Query) (*TimeWindow, error) {
	if q.Resolution <= 0 {
		q.Resolution = DefaultResolution
	}

	var window *TimeWindow
	cursor := 0
	for cursor < len(buf) {
		idx := bytes.Index(buf[cursor:], marker)
		if idx < 0 {
			break
		}
		start := cursor + idx
		if len(buf)-start < indicatorLen {
			break
		}
		length := binary.BigEndian.Uint64(buf[start+8 : start+16])
		if length < indicatorLen || length > uint64(len(buf)-start) {
			d.logger.Debug("grib: truncated message, stopping scan", "offset", start, "declared_length", length)
			break
		}
		end := start + int(length)
		msg := buf[start:end]
		cursor = end

		rec, err := d.records.DecodeRecord(msg)
		if err != nil {
			d.logger.Debug("grib: skipping message", "offset", start, "error", err)
			continue
		}
		value, err := rec.MeanWithin(q.Lat, q.Lon, q.Resolution)
		if err != nil {
			d.logger.Debug("grib: skipping message", "offset", start, "field", rec.Key(), "error", err)
			continue
		}

		if window == nil {
			window = &TimeWindow{ValidTime: rec.ValidTime(), Fields: make(map[string]Field)}
		}
		name := rec.ShortName()
		key := FieldKey(name, rec.Level, rec.HasLevel)
		window.Fields[key] = Field{
			Name:     name,
			Kind:     kindByName[name],
			Level:    rec.Level,
			HasLevel: rec.HasLevel,
			Value:    value,
		}
	}

	if window == nil {
		return nil, ErrNoData
	}
	return window, nil
}
