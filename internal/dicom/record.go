package dicom

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/studyforge/internal/dicom/corruption"
)

// mustNewElement creates a DICOM element, panicking on failure.
// Only used with registered tags and supported value types.
func mustNewElement(t tag.Tag, value any) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// Record is one image's element set together with how it is encoded.
type Record struct {
	// TransferSyntax is the UID the dataset is encoded with.
	TransferSyntax string
	// Relaxed disables VR and value type verification on write. Required
	// for private blocks and injected faults.
	Relaxed bool
	// MalformedLengths makes the encoded PixelData length odd.
	MalformedLengths bool

	elements []*dicom.Element
	encoded  []byte
}

// Set adds e, replacing any element with the same tag.
func (r *Record) Set(e *dicom.Element) {
	for i, existing := range r.elements {
		if existing.Tag == e.Tag {
			r.encoded = nil
			r.elements[i] = e
			return
		}
	}
	r.encoded = nil
	r.elements = append(r.elements, e)
}

// Get returns the element with tag t.
func (r *Record) Get(t tag.Tag) (*dicom.Element, bool) {
	for _, e := range r.elements {
		if e.Tag == t {
			return e, true
		}
	}
	return nil, false
}

// Strings returns the string values of t, or nil when t is absent or not
// a string attribute.
func (r *Record) Strings(t tag.Tag) []string {
	e, ok := r.Get(t)
	if !ok {
		return nil
	}
	s, _ := e.Value.GetValue().([]string)
	return s
}

// Len returns the number of elements.
func (r *Record) Len() int { return len(r.elements) }

// Dataset returns the elements sorted by (group, element).
func (r *Record) Dataset() dicom.Dataset {
	elements := make([]*dicom.Element, len(r.elements))
	copy(elements, r.elements)
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Tag.Group != elements[j].Tag.Group {
			return elements[i].Tag.Group < elements[j].Tag.Group
		}
		return elements[i].Tag.Element < elements[j].Tag.Element
	})
	return dicom.Dataset{Elements: elements}
}

// WriteTo encodes the record as a Part 10 file.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	data, err := r.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Encode encodes the record once and keeps the result for Bytes. Set
// drops it; the encoding flags must not change afterwards.
func (r *Record) Encode() error {
	data, err := r.encode()
	if err != nil {
		return err
	}
	r.encoded = data
	return nil
}

// Bytes encodes the record as a Part 10 file.
func (r *Record) Bytes() ([]byte, error) {
	if r.encoded != nil {
		return r.encoded, nil
	}
	return r.encode()
}

func (r *Record) encode() ([]byte, error) {
	var opts []dicom.WriteOption
	if r.Relaxed {
		opts = append(opts, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification())
	}

	var buf bytes.Buffer
	if err := dicom.Write(&buf, r.Dataset(), opts...); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	data := buf.Bytes()
	if r.MalformedLengths {
		corruption.PatchOddPixelLength(data, r.TransferSyntax)
	}
	return data, nil
}
