// Package uid generates DICOM unique identifiers, either under the 2.25
// UUID-derived root or as a counter under a configured organizational root.
package uid

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"github.com/mrsinham/studyforge/internal/failure"
	"github.com/mrsinham/studyforge/internal/util"
)

// Method selects how identifiers are minted.
type Method int

const (
	RandomRooted Method = iota
	SequentialRooted
)

// String returns the job-file spelling of the method.
func (m Method) String() string {
	switch m {
	case RandomRooted:
		return "uuid_2_25"
	case SequentialRooted:
		return "custom_root"
	default:
		return "unknown"
	}
}

// ParseMethod parses the job-file spelling of a method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "uuid_2_25":
		return RandomRooted, nil
	case "custom_root":
		return SequentialRooted, nil
	default:
		return RandomRooted, &failure.ConfigurationError{
			Msg:     "Unsupported UID method",
			Details: map[string]any{"method": s},
		}
	}
}

const (
	uuidRoot = "2.25"
	// MaxLength is the longest valid UI value.
	MaxLength = 64
	// invalidProbability is the chance an instance identifier is made
	// invalid when the caller allows it.
	invalidProbability = 0.1
)

var rootPattern = regexp.MustCompile(`^[0-2](\.\d+)+$`)

// Generator mints identifiers. It is not safe for concurrent use.
type Generator struct {
	method  Method
	root    string
	counter uint64
	rng     util.Source
}

// Option configures a Generator.
type Option func(*Generator)

// WithSource sets the random source used for invalid-identifier decisions.
func WithSource(src util.Source) Option {
	return func(g *Generator) { g.rng = src }
}

// New returns a generator for method. root is required for SequentialRooted
// and ignored otherwise.
func New(method Method, root string, opts ...Option) (*Generator, error) {
	g := &Generator{method: method}
	switch method {
	case RandomRooted:
		g.root = uuidRoot
	case SequentialRooted:
		if root == "" {
			return nil, &failure.ConfigurationError{Msg: "custom_root requires a UID root"}
		}
		if !rootPattern.MatchString(root) {
			return nil, &failure.ConfigurationError{
				Msg:     "Invalid UID root format",
				Details: map[string]any{"root": root},
			}
		}
		g.root = root
	default:
		return nil, &failure.ConfigurationError{
			Msg:     "Unsupported UID method",
			Details: map[string]any{"method": int(method)},
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rng = util.OrDefault(g.rng)
	return g, nil
}

// Method returns the generator's method.
func (g *Generator) Method() Method { return g.method }

// Next returns a fresh identifier.
func (g *Generator) Next() string {
	if g.method == SequentialRooted {
		g.counter++
		return g.root + "." + strconv.FormatUint(g.counter, 10)
	}
	return uuidRoot + "." + uuidDecimal()
}

// StudyUID returns a new Study Instance UID.
func (g *Generator) StudyUID() string { return g.Next() }

// SeriesUID returns a new Series Instance UID.
func (g *Generator) SeriesUID() string { return g.Next() }

// FrameOfReferenceUID returns a new Frame of Reference UID.
func (g *Generator) FrameOfReferenceUID() string { return g.Next() }

// CreatorUID returns a new identifier for an implementation or instance creator.
func (g *Generator) CreatorUID() string { return g.Next() }

// InstanceUID returns a new SOP Instance UID. When allowInvalid is set, one
// identifier in ten on average is deliberately malformed with a component
// that starts with a leading zero.
func (g *Generator) InstanceUID(allowInvalid bool) string {
	id := g.Next()
	if !allowInvalid || g.rng.Float64() >= invalidProbability {
		return id
	}

	if g.method == SequentialRooted {
		g.counter++
		return fmt.Sprintf("%s.0%d", g.root, g.counter)
	}
	part := uuidDecimal()
	if len(part) < 7 {
		return fmt.Sprintf("%s.0%s", uuidRoot, part)
	}
	split := 3 + g.rng.IntN(len(part)-5)
	return fmt.Sprintf("%s.0%s.%s", uuidRoot, part[:split], part[split:])
}

// uuidDecimal renders a random UUID's 128-bit value in base 10.
func uuidDecimal() string {
	u := uuid.New()
	return new(big.Int).SetBytes(u[:]).String()
}
