// Package spatial derives per-slice geometry for an axial series.
package spatial

// DefaultOrientation is the axis-aligned ImageOrientationPatient.
var DefaultOrientation = [6]float64{1, 0, 0, 0, 1, 0}

// DefaultPixelSpacing is the in-plane spacing in millimeters.
var DefaultPixelSpacing = [2]float64{0.5, 0.5}

// Slice is the geometry of one image in a series.
type Slice struct {
	InstanceNumber int
	Position       [3]float64
	SliceLocation  float64
	Orientation    [6]float64
	PixelSpacing   [2]float64
	Thickness      float64
}

// Calculator computes slice geometry for one series. It holds no mutable
// state and is safe for concurrent use.
type Calculator struct {
	Thickness    float64
	Spacing      float64
	StartZ       float64
	Orientation  [6]float64
	PixelSpacing [2]float64
}

// Option overrides a default of the Calculator.
type Option func(*Calculator)

// WithOrientation overrides the image orientation.
func WithOrientation(o [6]float64) Option {
	return func(c *Calculator) { c.Orientation = o }
}

// WithPixelSpacing overrides the in-plane pixel spacing.
func WithPixelSpacing(row, column float64) Option {
	return func(c *Calculator) { c.PixelSpacing = [2]float64{row, column} }
}

// New returns a Calculator for slices of the given thickness, spaced by
// spacing along z starting at startZ.
func New(thickness, spacing, startZ float64, opts ...Option) Calculator {
	c := Calculator{
		Thickness:    thickness,
		Spacing:      spacing,
		StartZ:       startZ,
		Orientation:  DefaultOrientation,
		PixelSpacing: DefaultPixelSpacing,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Calculate returns the geometry of the slice at the zero-based index.
func (c Calculator) Calculate(index int) Slice {
	z := c.StartZ + float64(index)*c.Spacing
	return Slice{
		InstanceNumber: index + 1,
		Position:       [3]float64{0, 0, z},
		SliceLocation:  z,
		Orientation:    c.Orientation,
		PixelSpacing:   c.PixelSpacing,
		Thickness:      c.Thickness,
	}
}
