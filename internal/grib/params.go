package grib

import (
	"strconv"
	"strings"
)

// Kind is the closed set of physical quantities the pipeline consumes.
// Every short name the parameter table can produce maps to exactly one Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindHeight
	KindDirection
	KindPeriod
	KindWindSpeed
	KindWindDirection
	KindWindU
	KindWindV
	KindTemperature
)

func (k Kind) String() string {
	switch k {
	case KindHeight:
		return "height"
	case KindDirection:
		return "direction"
	case KindPeriod:
		return "period"
	case KindWindSpeed:
		return "wind_speed"
	case KindWindDirection:
		return "wind_direction"
	case KindWindU:
		return "wind_u"
	case KindWindV:
		return "wind_v"
	case KindTemperature:
		return "temperature"
	default:
		return "unknown"
	}
}

// Short names emitted by the NOAA wave models.
const (
	NameSignificantHeight = "swh"   // combined wind waves and swell
	NameWindWaveHeight    = "shww"  // significant height of wind waves
	NameWindWavePeriod    = "mpww"  // mean period of wind waves
	NameWindWaveDirection = "wvdir" // direction of wind waves
	NameTotalSwellHeight  = "shts"  // significant height of total swell
	NameTotalSwellPeriod  = "mpts"
	NameTotalSwellDir     = "mdts"
	NameSwellHeight       = "swell" // partitioned swell, levelled
	NameSwellPeriod       = "swper"
	NameSwellDirection    = "swdir"
	NamePrimaryDirection  = "dirpw"
	NamePrimaryPeriod     = "perpw"
	NameWindSpeed         = "ws"
	NameWindDirection     = "wdir"
	NameWindU             = "u"
	NameWindV             = "v"
	NameTemperature       = "t"
)

var kindByName = map[string]Kind{
	NameSignificantHeight: KindHeight,
	NameWindWaveHeight:    KindHeight,
	NameTotalSwellHeight:  KindHeight,
	NameSwellHeight:       KindHeight,
	NameWindWavePeriod:    KindPeriod,
	NameTotalSwellPeriod:  KindPeriod,
	NameSwellPeriod:       KindPeriod,
	NamePrimaryPeriod:     KindPeriod,
	NameWindWaveDirection: KindDirection,
	NameTotalSwellDir:     KindDirection,
	NameSwellDirection:    KindDirection,
	NamePrimaryDirection:  KindDirection,
	NameWindSpeed:         KindWindSpeed,
	NameWindDirection:     KindWindDirection,
	NameWindU:             KindWindU,
	NameWindV:             KindWindV,
	NameTemperature:       KindTemperature,
}

// KindOf classifies a field key such as "swell_2" or "u_10". The second
// return value is the level suffix, or 0 when the key carries none.
func KindOf(key string) (Kind, int) {
	base, level := SplitLevel(key)
	return kindByName[base], level
}

// SplitLevel separates a field key into its short name and level suffix.
func SplitLevel(key string) (string, int) {
	i := strings.LastIndexByte(key, '_')
	if i <= 0 || i == len(key)-1 {
		return key, 0
	}
	level, err := strconv.Atoi(key[i+1:])
	if err != nil || level < 0 {
		return key, 0
	}
	return key[:i], level
}

// FieldKey builds the key a decoded field is stored under. Levels above 1
// are appended so multi-level fields do not collide.
func FieldKey(name string, level int, hasLevel bool) string {
	if hasLevel && level > 1 {
		return name + "_" + strconv.Itoa(level)
	}
	return name
}

// Fixed surface types (GRIB2 code table 4.5) that affect naming.
const (
	surfaceOrderedSeq = 241
	surfaceMissing    = 255
)

// Disciplines (table 0.0) and parameter categories (table 4.1).
const (
	disciplineMeteo     = 0
	disciplineOceanic   = 10
	categoryTemperature = 0
	categoryMomentum    = 2
	categoryWaves       = 0
)

type paramKey struct {
	discipline, category, number uint8
}

// parameterNames covers GRIB2 code table 4.2 entries the wave models publish.
var parameterNames = map[paramKey]string{
	{disciplineOceanic, categoryWaves, 3}:       NameSignificantHeight,
	{disciplineOceanic, categoryWaves, 4}:       NameWindWaveDirection,
	{disciplineOceanic, categoryWaves, 5}:       NameWindWaveHeight,
	{disciplineOceanic, categoryWaves, 6}:       NameWindWavePeriod,
	{disciplineOceanic, categoryWaves, 7}:       NameTotalSwellDir,
	{disciplineOceanic, categoryWaves, 8}:       NameTotalSwellHeight,
	{disciplineOceanic, categoryWaves, 9}:       NameTotalSwellPeriod,
	{disciplineOceanic, categoryWaves, 10}:     NamePrimaryDirection,
	{disciplineOceanic, categoryWaves, 11}:     NamePrimaryPeriod,
	{disciplineMeteo, categoryTemperature, 0}: NameTemperature,
	{disciplineMeteo, categoryMomentum, 0}:     NameWindDirection,
	{disciplineMeteo, categoryMomentum, 1}:     NameWindSpeed,
	{disciplineMeteo, categoryMomentum, 2}:     NameWindU,
	{disciplineMeteo, categoryMomentum, 3}:     NameWindV,
}

// swellPartitions renames the total-swell parameters when they are reported
// on ordered sequence levels (one level per swell partition).
var swellPartitions = map[string]string{
	NameTotalSwellHeight: NameSwellHeight,
	NameTotalSwellPeriod: NameSwellPeriod,
	NameTotalSwellDir:    NameSwellDirection,
}

func shortName(discipline, category, number, surface uint8) (string, bool) {
	name, ok := parameterNames[paramKey{discipline, category, number}]
	if !ok {
		return "", false
	}
	if surface == surfaceOrderedSeq {
		if partitioned, ok := swellPartitions[name]; ok {
			name = partitioned
		}
	}
	return name, true
}
