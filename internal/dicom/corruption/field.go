package corruption

// Presence is how strongly a field is required to be present.
type Presence int

const (
	Mandatory Presence = iota
	Conditional
	Optional
)

// String returns the name of the presence class.
func (p Presence) String() string {
	switch p {
	case Mandatory:
		return "mandatory"
	case Conditional:
		return "conditional"
	case Optional:
		return "optional"
	default:
		return "unknown"
	}
}

// Class is the value format of a field.
type Class int

const (
	Date Class = iota
	Time
	IntegerString
	DecimalString
	CodeString
	Identifier
	// Text is free text; Field.MaxLength bounds it when positive.
	Text
	Other
)

// String returns the name of the value class.
func (c Class) String() string {
	switch c {
	case Date:
		return "date"
	case Time:
		return "time"
	case IntegerString:
		return "integer-string"
	case DecimalString:
		return "decimal-string"
	case CodeString:
		return "code-string"
	case Identifier:
		return "identifier"
	case Text:
		return "text"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Numeric reports whether values of the class are numbers.
func (c Class) Numeric() bool {
	return c == IntegerString || c == DecimalString
}

// Field describes one attribute for fault injection.
type Field struct {
	Name      string
	Presence  Presence
	Class     Class
	MaxLength int
}
