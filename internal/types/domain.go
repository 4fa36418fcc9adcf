package types

// Location is a geographic coordinate in decimal degrees, longitude in [-180, 180].
type Location struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"latitude"`
	Lon float64 `json:"lon" yaml:"lon" validate:"longitude"`
}

// BeachGeometry is the static nearshore configuration used to transform
// offshore swell into breaking waves. Orientation is the compass direction the
// beach faces (the direction waves arrive from when they hit it head on).
type BeachGeometry struct {
	Slope             float64   `json:"slope" yaml:"slope" validate:"gt=0"`
	Depth             float64   `json:"depth" yaml:"depth" validate:"gte=0"`
	Orientation       float64   `json:"orientation" yaml:"orientation" validate:"gte=0,lt=360"`
	JettyObstructions []float64 `json:"jetty_obstructions,omitempty" yaml:"jetty_obstructions" validate:"dive,gte=0,lt=360"`
}

// Fallback geometry used when a catalog entry carries none.
const (
	DefaultBeachDepth       = 10.0
	DefaultBeachSlope       = 0.02
	DefaultBeachOrientation = 180.0
)

// FallbackGeometry picks a coarse orientation from the coast the point sits on.
// US East Coast beaches face east, US West Coast beaches face west, and
// everything else falls back to south-facing.
func FallbackGeometry(lon float64) BeachGeometry {
	g := BeachGeometry{
		Slope:       DefaultBeachSlope,
		Depth:       DefaultBeachDepth,
		Orientation: DefaultBeachOrientation,
	}
	switch {
	case lon > -81 && lon < -66:
		g.Orientation = 90
	case lon > -126 && lon < -117:
		g.Orientation = 270
	}
	return g
}

// SurfLocation is one entry of the location catalog. Buoy is the offshore
// point sampled from the wave model; Beach is where weather is looked up.
type SurfLocation struct {
	ID           string         `json:"id" yaml:"id" validate:"required,max=64"`
	Name         string         `json:"name" yaml:"name" validate:"required"`
	State        string         `json:"state,omitempty" yaml:"state"`
	Buoy         Location       `json:"buoy" yaml:"buoy" validate:"required"`
	Beach        Location       `json:"beach" yaml:"beach" validate:"required"`
	TideStations []string       `json:"tide_stations" yaml:"tide_stations" validate:"max=2,dive,numeric"`
	Geometry     *BeachGeometry `json:"geometry,omitempty" yaml:"geometry" validate:"omitempty"`
}

// EffectiveGeometry returns the configured geometry or the coastal fallback.
func (l SurfLocation) EffectiveGeometry() BeachGeometry {
	if l.Geometry != nil {
		return *l.Geometry
	}
	return FallbackGeometry(l.Beach.Lon)
}

// LocationSummary is the public listing shape published as the locations index.
type LocationSummary struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	State string   `json:"state,omitempty"`
	Beach Location `json:"beach"`
}

// Summary projects the location onto its public listing shape.
func (l SurfLocation) Summary() LocationSummary {
	return LocationSummary{ID: l.ID, Name: l.Name, State: l.State, Beach: l.Beach}
}
