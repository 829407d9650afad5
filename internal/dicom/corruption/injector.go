package corruption

import (
	"fmt"
	"strings"

	"github.com/mrsinham/studyforge/internal/util"
)

// Replacement values written in place of corrupted fields.
const (
	InvalidDate         = "INVALID_DATE"
	InvalidTime         = "INVALID_TIME"
	InvalidInteger      = "NOT_A_NUMBER"
	InvalidDecimal      = "NOT_DECIMAL"
	InvalidCodeString   = "invalid_cs!"
	InvalidTypeNumeric  = "INVALID_TYPE"
	InvalidTypeText     = "12345"
	severeIdentifierTag = "INVALID_UID_"
)

// OverlongIdentifier exceeds the 64 character limit of a UID.
var OverlongIdentifier = "1." + strings.Repeat("2", 65)

const (
	conditionalOmitModerate = 0.5
	optionalOmitSevere      = 0.3
	textSuffixLength        = 8
)

// Injector decides the emitted value of each field for one Level.
type Injector struct {
	level Level
	rng   util.Source
}

// NewInjector returns an injector for level. A nil src uses the
// process-wide random source.
func NewInjector(level Level, src util.Source) *Injector {
	return &Injector{level: level, rng: util.OrDefault(src)}
}

// Level returns the injector's level.
func (in *Injector) Level() Level { return in.level }

// Enabled reports whether the injector changes anything.
func (in *Injector) Enabled() bool { return in.level != LevelNone }

// Apply returns the values to emit for f and whether the field is present
// at all. An omitted field must not be written. One omission decision is
// made per call, then every component of a multi-valued field is replaced.
func (in *Injector) Apply(f Field, values ...string) ([]string, bool) {
	if len(values) == 0 {
		values = []string{""}
	}

	switch in.level {
	case LevelNone:
		return values, true

	case LevelMild:
		return in.each(values, func(v string) string { return in.mild(f, v) }), true

	case LevelModerate:
		switch f.Presence {
		case Mandatory:
			return nil, false
		case Conditional:
			if in.rng.Float64() < conditionalOmitModerate {
				return nil, false
			}
		}
		if f.Class == Identifier {
			return in.each(values, func(string) string { return "2.25.0" + util.RandomDigits(in.rng, 19) }), true
		}
		return in.each(values, func(v string) string { return in.mild(f, v) }), true

	case LevelSevere:
		switch f.Presence {
		case Mandatory, Conditional:
			return nil, false
		case Optional:
			if in.rng.Float64() < optionalOmitSevere {
				return nil, false
			}
		}
		if f.Class == Identifier {
			return in.each(values, func(string) string {
				return severeIdentifierTag + util.RandomUpperAlphanumeric(in.rng, 4)
			}), true
		}
		if f.Class.Numeric() {
			return in.each(values, func(string) string { return InvalidTypeNumeric }), true
		}
		return in.each(values, func(string) string { return InvalidTypeText }), true

	default:
		panic(fmt.Sprintf("corruption: unknown level %q", in.level))
	}
}

func (in *Injector) each(values []string, fn func(string) string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}
	return out
}

// mild corrupts the format of v without omitting it.
func (in *Injector) mild(f Field, v string) string {
	switch f.Class {
	case Date:
		return InvalidDate
	case Time:
		return InvalidTime
	case IntegerString:
		return InvalidInteger
	case DecimalString:
		return InvalidDecimal
	case CodeString:
		return InvalidCodeString
	case Identifier:
		return OverlongIdentifier
	case Text:
		if f.MaxLength > 0 {
			return util.RandomAlphanumeric(in.rng, max(2*f.MaxLength, f.MaxLength+1))
		}
		return v + util.RandomAlphanumeric(in.rng, textSuffixLength)
	case Other:
		return v + util.RandomAlphanumeric(in.rng, textSuffixLength)
	default:
		panic(fmt.Sprintf("corruption: unknown value class %d", f.Class))
	}
}
