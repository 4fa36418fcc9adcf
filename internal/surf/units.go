package surf

// Units is the measurement system heights are expressed in.
type Units int

const (
	Metric Units = iota
	English
)

func (u Units) String() string {
	if u == English {
		return "english"
	}
	return "metric"
}

const feetPerMetre = 3.28084

// MetresToFeet converts a length.
func MetresToFeet(m float64) float64 { return m * feetPerMetre }

// FeetToMetres converts a length.
func FeetToMetres(ft float64) float64 { return ft / feetPerMetre }

func convertLength(v float64, from, to Units) float64 {
	switch {
	case from == to:
		return v
	case to == English:
		return MetresToFeet(v)
	default:
		return FeetToMetres(v)
	}
}

// SwellComponent is one spectral swell partition for one hour. Direction is
// the compass bearing the swell arrives from.
type SwellComponent struct {
	Height    float64 `json:"height"`
	Period    float64 `json:"period"`
	Direction float64 `json:"direction"`
}

// Conditions is the set of swell components for one hour together with the
// unit system their heights are in. It is a value; WithUnits returns a copy.
type Conditions struct {
	Units      Units
	Components []SwellComponent
}

// WithUnits returns the conditions expressed in u. The receiver is not modified.
func (c Conditions) WithUnits(u Units) Conditions {
	out := Conditions{Units: u, Components: make([]SwellComponent, len(c.Components))}
	for i, comp := range c.Components {
		comp.Height = convertLength(comp.Height, c.Units, u)
		out.Components[i] = comp
	}
	return out
}
