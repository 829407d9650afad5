// Package image synthesizes the pixel content of generated images: a label
// mode that renders the instance identifier as text and a radiographic mode
// with procedural patterns.
package image

// Content selects how an image is synthesized. It is implemented by
// LabelSpec and RadiographicSpec only.
type Content interface {
	Mode() string
	isContent()
}

// Samples is a synthesized matrix. It is implemented by *Gray8 and
// *Signed16 only.
type Samples interface {
	Dimensions() (width, height int)
	isSamples()
}

const (
	DefaultWidth      = 512
	DefaultHeight     = 512
	DefaultFontSize   = 16
	DefaultForeground = 255
	DefaultBitsStored = 12
)

// LabelSpec renders the instance identifier as text on a flat canvas.
type LabelSpec struct {
	Width      int
	Height     int
	FontSize   float64
	Background uint8
	Foreground uint8
}

// NewLabelSpec returns a label spec with the default canvas and colors.
func NewLabelSpec() LabelSpec {
	return LabelSpec{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		FontSize:   DefaultFontSize,
		Foreground: DefaultForeground,
	}
}

func (LabelSpec) Mode() string { return "label" }
func (LabelSpec) isContent()   {}

// Pattern is a radiographic test pattern.
type Pattern string

const (
	PatternGradient Pattern = "gradient"
	PatternCircle   Pattern = "circle"
	PatternNoise    Pattern = "noise"
)

// RadiographicSpec renders a procedural pattern in signed 16-bit samples.
type RadiographicSpec struct {
	Width      int
	Height     int
	Pattern    Pattern
	BitsStored int
}

// NewRadiographicSpec returns a radiographic spec with the default canvas,
// pattern and bit depth.
func NewRadiographicSpec() RadiographicSpec {
	return RadiographicSpec{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Pattern:    PatternGradient,
		BitsStored: DefaultBitsStored,
	}
}

func (RadiographicSpec) Mode() string { return "radiographic" }
func (RadiographicSpec) isContent()   {}

// Gray8 holds single-byte unsigned samples in row-major order.
type Gray8 struct {
	Width  int
	Height int
	Pix    []uint8
}

func (g *Gray8) Dimensions() (int, int) { return g.Width, g.Height }
func (*Gray8) isSamples()               {}

// At returns the sample at column x, row y.
func (g *Gray8) At(x, y int) uint8 { return g.Pix[y*g.Width+x] }

// Signed16 holds two-byte signed samples in row-major order.
type Signed16 struct {
	Width      int
	Height     int
	BitsStored int
	Pix        []int16
}

func (s *Signed16) Dimensions() (int, int) { return s.Width, s.Height }
func (*Signed16) isSamples()               {}

// At returns the sample at column x, row y.
func (s *Signed16) At(x, y int) int16 { return s.Pix[y*s.Width+x] }
