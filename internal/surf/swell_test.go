package surf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfcast/internal/types"
)

var eastBeach = types.BeachGeometry{Slope: 0.02, Depth: 10, Orientation: 90}

func metric(components ...SwellComponent) Conditions {
	return Conditions{Units: Metric, Components: components}
}

func singleBreaking(c SwellComponent, g types.BeachGeometry) float64 {
	hb, _ := BreakingCharacteristics(c.Period, AngularDistance(c.Direction, g.Orientation), c.Height, g.Slope, g.Depth)
	return breakingCoefficient * hb
}

func TestCompute_SingleComponent(t *testing.T) {
	comp := SwellComponent{Height: 1.2, Period: 11, Direction: 100}
	res := NewCalculator(nil).Compute(metric(comp), eastBeach)

	require.Equal(t, BreakingValid, res.Status)
	want := singleBreaking(comp, eastBeach)
	assert.InDelta(t, want, res.MaxHeight, 1e-9)
	assert.InDelta(t, want/1.4, res.MinHeight, 1e-9)
}

func TestCompute_RootSumSquare(t *testing.T) {
	a := SwellComponent{Height: 1.0, Period: 12, Direction: 80}
	b := SwellComponent{Height: 0.5, Period: 7, Direction: 120}

	res := NewCalculator(nil).Compute(metric(a, b), eastBeach)
	ha, hb := singleBreaking(a, eastBeach), singleBreaking(b, eastBeach)
	assert.InDelta(t, math.Sqrt(ha*ha+hb*hb), res.MaxHeight, 1e-9)
}

func TestCompute_PermutationInvariant(t *testing.T) {
	comps := []SwellComponent{
		{Height: 1.0, Period: 12, Direction: 80},
		{Height: 0.5, Period: 7, Direction: 120},
		{Height: 0.8, Period: 9, Direction: 60},
	}
	calc := NewCalculator(nil)
	base := calc.Compute(metric(comps...), eastBeach)

	perms := [][]int{{0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		got := calc.Compute(metric(comps[p[0]], comps[p[1]], comps[p[2]]), eastBeach)
		assert.InDelta(t, base.MaxHeight, got.MaxHeight, 1e-12, "permutation %v", p)
	}
}

func TestCompute_BehindBeach(t *testing.T) {
	calc := NewCalculator(nil)

	t.Run("all excluded is invalid", func(t *testing.T) {
		res := calc.Compute(metric(
			SwellComponent{Height: 2, Period: 10, Direction: 270},
			SwellComponent{Height: 1, Period: 8, Direction: 200},
		), eastBeach)
		assert.Equal(t, BreakingInvalidAngle, res.Status)
		assert.Equal(t, 2, res.Excluded)
	})

	t.Run("partial exclusion keeps the rest", func(t *testing.T) {
		front := SwellComponent{Height: 1, Period: 10, Direction: 90}
		res := calc.Compute(metric(front, SwellComponent{Height: 3, Period: 14, Direction: 270}), eastBeach)
		assert.Equal(t, BreakingValid, res.Status)
		assert.Equal(t, 1, res.Excluded)
		assert.InDelta(t, singleBreaking(front, eastBeach), res.MaxHeight, 1e-9)
	})

	t.Run("wraps across north", func(t *testing.T) {
		north := types.BeachGeometry{Slope: 0.02, Depth: 10, Orientation: 350}
		res := calc.Compute(metric(SwellComponent{Height: 1, Period: 10, Direction: 20}), north)
		assert.Equal(t, BreakingValid, res.Status)
	})
}

func TestCompute_NoComponentsIsNoData(t *testing.T) {
	res := NewCalculator(nil).Compute(Conditions{Units: English}, eastBeach)
	assert.Equal(t, BreakingNoData, res.Status)
	assert.Zero(t, res.MaxHeight)
	assert.Zero(t, res.MinHeight)
}

func TestCompute_UnitsRoundTrip(t *testing.T) {
	comp := SwellComponent{Height: 1.0, Period: 10, Direction: 90}
	calc := NewCalculator(nil)

	inMetric := calc.Compute(metric(comp), eastBeach)
	english := Conditions{Units: English, Components: []SwellComponent{{Height: MetresToFeet(1.0), Period: 10, Direction: 90}}}
	inFeet := calc.Compute(english, eastBeach)

	assert.Equal(t, English, inFeet.Units)
	assert.InDelta(t, MetresToFeet(inMetric.MaxHeight), inFeet.MaxHeight, 1e-9)
	assert.InDelta(t, MetresToFeet(1.0), english.Components[0].Height, 1e-12, "input must not be mutated")
}

func TestCompute_Wind(t *testing.T) {
	comp := SwellComponent{Height: 1.5, Period: 12, Direction: 90}
	calc := NewCalculator(nil)
	base := calc.Compute(metric(comp), eastBeach).MaxHeight

	tests := []struct {
		name   string
		wind   Wind
		adjust float64
	}{
		{"strong onshore", Wind{SpeedKnots: 20, Direction: 100}, -0.4},
		{"strong sideshore", Wind{SpeedKnots: 13, Direction: 0}, -0.15},
		{"strong offshore", Wind{SpeedKnots: 15, Direction: 270}, 0.1},
		{"light offshore", Wind{SpeedKnots: 5, Direction: 250}, 0.2},
		{"light onshore", Wind{SpeedKnots: 8, Direction: 90}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := calc.Compute(metric(comp), eastBeach, WithWind(tt.wind))
			assert.InDelta(t, base+tt.adjust, res.MaxHeight, 1e-9)
			assert.InDelta(t, res.MaxHeight/1.4, res.MinHeight, 1e-9)
		})
	}

	t.Run("never negative", func(t *testing.T) {
		tiny := SwellComponent{Height: 0.1, Period: 5, Direction: 90}
		res := calc.Compute(metric(tiny), eastBeach, WithWind(Wind{SpeedKnots: 25, Direction: 90}))
		assert.Zero(t, res.MaxHeight)
	})
}

func TestCompute_JettyShadowing(t *testing.T) {
	comp := SwellComponent{Height: 1.5, Period: 12, Direction: 45}
	calc := NewCalculator(nil)
	base := calc.Compute(metric(comp), eastBeach).MaxHeight

	shadowed := eastBeach
	shadowed.JettyObstructions = []float64{10}
	res := calc.Compute(metric(comp), shadowed, WithJettyShadowing())
	assert.InDelta(t, base*0.7, res.MaxHeight, 1e-9)
	assert.InDelta(t, base*0.7/1.4, res.MinHeight, 1e-9)

	clear := eastBeach
	clear.JettyObstructions = []float64{200}
	res = calc.Compute(metric(comp), clear, WithJettyShadowing())
	assert.InDelta(t, base, res.MaxHeight, 1e-9)

	// Without the option obstructions are ignored.
	res = calc.Compute(metric(comp), shadowed)
	assert.InDelta(t, base, res.MaxHeight, 1e-9)
}

func TestClassifyWind(t *testing.T) {
	assert.Equal(t, WindOnshore, ClassifyWind(135, 90))
	assert.Equal(t, WindSideshore, ClassifyWind(136, 90))
	assert.Equal(t, WindSideshore, ClassifyWind(225, 90))
	assert.Equal(t, WindOffshore, ClassifyWind(226, 90))
	assert.Equal(t, WindOnshore, ClassifyWind(10, 340))
}

func TestConditionsWithUnits(t *testing.T) {
	c := Conditions{Units: Metric, Components: []SwellComponent{{Height: 2, Period: 9, Direction: 180}}}
	ft := c.WithUnits(English)

	assert.Equal(t, English, ft.Units)
	assert.InDelta(t, 6.56168, ft.Components[0].Height, 1e-6)
	assert.Equal(t, 9.0, ft.Components[0].Period)
	assert.Equal(t, 2.0, c.Components[0].Height)

	back := ft.WithUnits(Metric)
	assert.InDelta(t, 2.0, back.Components[0].Height, 1e-12)
}
