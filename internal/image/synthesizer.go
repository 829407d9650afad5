package image

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/mrsinham/studyforge/internal/failure"
	"github.com/mrsinham/studyforge/internal/util"
)

// DefaultFontPaths lists the monospace TrueType fonts tried for label mode,
// in order.
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
	"/usr/share/fonts/TTF/DejaVuSansMono.ttf",
	"/usr/share/fonts/dejavu/DejaVuSansMono.ttf",
	"/Library/Fonts/Courier New.ttf",
	`C:\Windows\Fonts\consola.ttf`,
}

const (
	// MinLabelSize is the smallest label canvas on which a glyph is guaranteed to
	// leave a visible mark.
	MinLabelSize = 16
	labelMargin  = 10
	labelLeading = 20
	// Samples stored in int16 cannot exceed this value.
	maxSigned16 = math.MaxInt16
	// Sample values for the circle pattern; with the fixed -1024 rescale
	// intercept they map to +1024 HU (bone) and +40 HU (soft tissue).
	boneValue       = 2048
	softTissueValue = 1064
)

// Synthesizer renders image content. The zero value uses the process-wide
// random source and DefaultFontPaths.
type Synthesizer struct {
	Source    util.Source
	FontPaths []string

	once sync.Once
	ttf  *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewSynthesizer returns a Synthesizer drawing randomness from src.
func NewSynthesizer(src util.Source) *Synthesizer {
	return &Synthesizer{Source: src}
}

// Render produces the samples for one image. instanceUID is only used in
// label mode.
func (s *Synthesizer) Render(spec Content, instanceUID string) (Samples, error) {
	switch c := spec.(type) {
	case LabelSpec:
		return s.renderLabel(c, instanceUID)
	case RadiographicSpec:
		return s.renderRadiographic(c)
	default:
		return nil, &failure.PixelGenerationError{Msg: fmt.Sprintf("unsupported content type %T", spec)}
	}
}

func (s *Synthesizer) renderLabel(spec LabelSpec, text string) (*Gray8, error) {
	width, height := spec.Width, spec.Height
	if width < MinLabelSize || height < MinLabelSize {
		return nil, &failure.PixelGenerationError{
			Msg:  fmt.Sprintf("invalid dimensions: %dx%d (minimum %d)", width, height, MinLabelSize),
			Mode: spec.Mode(),
		}
	}
	size := spec.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}

	pix := make([]uint8, width*height)
	if spec.Background != 0 {
		for i := range pix {
			pix[i] = spec.Background
		}
	}
	out := &Gray8{Width: width, Height: height, Pix: pix}
	if text == "" {
		return out, nil
	}

	face := s.face(size)
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face}

	perLine := max(1, width/10)
	leading := int(math.Round(labelLeading * size / DefaultFontSize))
	ascent := face.Metrics().Ascent.Ceil()
	x := min(labelMargin, width/10)
	top := height / 4
	for start := 0; start < len(text); start += perLine {
		end := min(start+perLine, len(text))
		drawer.Dot = fixed.P(x, top+ascent)
		drawer.DrawString(text[start:end])
		top += leading
	}

	// Guarantee a visible mark even when a large face overflows a small
	// canvas.
	if !anyCovered(mask) {
		drawer.Face = basicfont.Face7x13
		drawer.Dot = fixed.P(0, basicfont.Face7x13.Ascent)
		drawer.DrawString(text[:min(perLine, len(text))])
	}

	for i, a := range mask.Pix {
		if a >= 0x80 {
			pix[i] = spec.Foreground
		}
	}
	return out, nil
}

func anyCovered(mask *image.Alpha) bool {
	for _, a := range mask.Pix {
		if a >= 0x80 {
			return true
		}
	}
	return false
}

// face returns a TrueType face of the requested size, or the built-in
// bitmap face when no system font could be loaded.
func (s *Synthesizer) face(size float64) font.Face {
	s.once.Do(func() {
		paths := s.FontPaths
		if paths == nil {
			paths = DefaultFontPaths
		}
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			f, err := opentype.Parse(data)
			if err != nil {
				continue
			}
			s.ttf = f
			return
		}
	})
	if s.ttf == nil {
		return basicfont.Face7x13
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if face, ok := s.faces[size]; ok {
		return face
	}
	face, err := opentype.NewFace(s.ttf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	if s.faces == nil {
		s.faces = make(map[float64]font.Face)
	}
	s.faces[size] = face
	return face
}

func (s *Synthesizer) renderRadiographic(spec RadiographicSpec) (*Signed16, error) {
	width, height := spec.Width, spec.Height
	if width <= 0 || height <= 0 {
		return nil, &failure.PixelGenerationError{
			Msg:  fmt.Sprintf("invalid dimensions: %dx%d", width, height),
			Mode: spec.Mode(),
		}
	}
	if spec.BitsStored < 1 || spec.BitsStored > 16 {
		return nil, &failure.PixelGenerationError{
			Msg:  fmt.Sprintf("invalid bits stored: %d", spec.BitsStored),
			Mode: spec.Mode(),
		}
	}
	maxValue := min((1<<spec.BitsStored)-1, maxSigned16)

	out := &Signed16{Width: width, Height: height, BitsStored: spec.BitsStored, Pix: make([]int16, width*height)}
	switch spec.Pattern {
	case PatternGradient:
		row := make([]int16, width)
		for x := range row {
			if width > 1 {
				row[x] = int16(float64(x) * float64(maxValue) / float64(width-1))
			}
		}
		for y := 0; y < height; y++ {
			copy(out.Pix[y*width:(y+1)*width], row)
		}

	case PatternCircle:
		cx, cy := width/2, height/2
		radius := float64(min(width, height) / 4)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				dx, dy := float64(x-cx), float64(y-cy)
				if math.Sqrt(dx*dx+dy*dy) <= radius {
					out.Pix[y*width+x] = boneValue
				} else {
					out.Pix[y*width+x] = softTissueValue
				}
			}
		}

	case PatternNoise:
		rng := util.OrDefault(s.Source)
		for i := range out.Pix {
			out.Pix[i] = int16(rng.IntN(maxValue + 1))
		}

	default:
		return nil, &failure.PixelGenerationError{
			Msg:  fmt.Sprintf("Unknown pattern: %s", spec.Pattern),
			Mode: spec.Mode(),
		}
	}
	return out, nil
}
