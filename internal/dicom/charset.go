package dicom

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/mrsinham/studyforge/internal/failure"
)

// DefaultJapaneseCharacterSet is declared for non-ASCII names when no
// character set is configured.
var DefaultJapaneseCharacterSet = []string{"ISO 2022 IR 6", "ISO 2022 IR 87"}

// EncodeName joins the name components with '='. Components are included
// only when their flag is set, trailing empty components are dropped and a
// lone component is returned bare.
func EncodeName(name PersonName, useIdeographic, usePhonetic bool) string {
	parts := []string{name.Alphabetic, "", ""}
	if useIdeographic {
		parts[1] = name.Ideographic
	}
	if usePhonetic {
		parts[2] = name.Phonetic
	}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts, "=")
	}
}

// ResolveCharacterSet returns the Specific Character Set terms to declare
// for a record whose patient name is name. A nil override means none was
// configured; an override is split on '\' with blank terms dropped. A nil
// result means the attribute is absent.
func ResolveCharacterSet(override *string, name string) ([]string, error) {
	if override != nil {
		terms := splitCharacterSet(*override)
		if len(terms) > 0 {
			return terms, nil
		}
		if containsNonASCII(name) {
			return nil, &failure.BuildError{
				Msg: "SpecificCharacterSet is required for non-ASCII PatientName",
				Tag: "SpecificCharacterSet",
			}
		}
		return nil, nil
	}
	if containsNonASCII(name) {
		return append([]string(nil), DefaultJapaneseCharacterSet...), nil
	}
	return nil, nil
}

func splitCharacterSet(s string) []string {
	var terms []string
	for _, t := range strings.Split(s, `\`) {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func containsNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

// codecs maps defined terms to their text encodings. A nil encoding writes
// the UTF-8 bytes unchanged.
var codecs = map[string]encoding.Encoding{
	"ISO_IR 6":        nil,
	"ISO 2022 IR 6":   nil,
	"ISO_IR 192":      nil,
	"ISO_IR 100":      charmap.ISO8859_1,
	"ISO 2022 IR 100": charmap.ISO8859_1,
	"ISO_IR 101":      charmap.ISO8859_2,
	"ISO_IR 144":      charmap.ISO8859_5,
	"ISO_IR 13":       japanese.ShiftJIS,
	"ISO 2022 IR 13":  japanese.ShiftJIS,
	"ISO 2022 IR 87":  japanese.ISO2022JP,
	"ISO 2022 IR 159": japanese.ISO2022JP,
	"ISO 2022 IR 149": korean.EUCKR,
	"GB18030":         simplifiedchinese.GB18030,
	"GBK":             simplifiedchinese.GBK,
}

// textCodec converts text values to the bytes implied by a character set.
type textCodec struct {
	enc encoding.Encoding
}

// newTextCodec picks the encoding of the last term that names one.
// Unknown terms are treated as ASCII.
func newTextCodec(terms []string) textCodec {
	var c textCodec
	for _, t := range terms {
		if enc, ok := codecs[t]; ok && enc != nil {
			c.enc = enc
		}
	}
	return c
}

// Encode returns s in the codec's encoding. field names the attribute in
// the error returned for characters the encoding cannot represent.
func (c textCodec) Encode(field, s string) (string, error) {
	if c.enc == nil || !containsNonASCII(s) {
		return s, nil
	}
	out, err := c.enc.NewEncoder().String(s)
	if err != nil {
		return "", &failure.BuildError{Msg: "cannot encode value in declared character set", Tag: field, Err: err}
	}
	return out, nil
}
