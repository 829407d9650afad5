package corruption

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/studyforge/internal/util"
)

// mustNewPrivateElement creates a DICOM element with a private tag and explicit VR.
// This is required because dicom.NewElement fails on unregistered private tags.
func mustNewPrivateElement(t tag.Tag, rawVR string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("failed to create value for private element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, rawVR),
		RawValueRepresentation: rawVR,
		Value:                  value,
	}
}

// PrivateBlocks returns the private attributes of every vendor, sorted by tag.
// Records carrying them must be written without VR verification.
func PrivateBlocks(vendors []Vendor, src util.Source) []*dicom.Element {
	rng := util.OrDefault(src)
	var elements []*dicom.Element
	for _, v := range vendors {
		switch v {
		case VendorSiemens:
			elements = append(elements, siemensElements(rng)...)
		case VendorGE:
			elements = append(elements, geElements(rng)...)
		case VendorPhilips:
			elements = append(elements, philipsElements(rng)...)
		}
	}
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Tag.Group != elements[j].Tag.Group {
			return elements[i].Tag.Group < elements[j].Tag.Group
		}
		return elements[i].Tag.Element < elements[j].Tag.Element
	})
	return elements
}

// csaElement is one entry of a Siemens CSA header.
type csaElement struct {
	Name     string
	VM       int32
	VR       string
	SyngoDT  int32
	NumItems int32
	Values   []string
}

// buildCSAHeader encodes CSA elements in the "SV10" binary layout.
func buildCSAHeader(elements []csaElement) []byte {
	var buf bytes.Buffer

	buf.WriteString("SV10")
	buf.Write([]byte{0x04, 0x03, 0x02, 0x01})

	// binary.Write to bytes.Buffer never fails.
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(elements)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

	for _, elem := range elements {
		name := make([]byte, 64)
		copy(name, elem.Name)
		buf.Write(name)
		_ = binary.Write(&buf, binary.LittleEndian, elem.VM)

		vr := make([]byte, 4)
		copy(vr, elem.VR)
		buf.Write(vr)
		_ = binary.Write(&buf, binary.LittleEndian, elem.SyngoDT)
		_ = binary.Write(&buf, binary.LittleEndian, elem.NumItems)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

		for i := int32(0); i < elem.NumItems; i++ {
			var val []byte
			if i < int32(len(elem.Values)) {
				val = []byte(elem.Values[i])
			}
			// The item length is repeated four times.
			for j := 0; j < 4; j++ {
				_ = binary.Write(&buf, binary.LittleEndian, uint32(len(val)))
			}
			buf.Write(val)
			if padding := (4 - len(val)%4) % 4; padding > 0 {
				buf.Write(make([]byte, padding))
			}
		}
	}
	return buf.Bytes()
}

func randomBytes(rng util.Source, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.IntN(256))
	}
	return b
}

// ctImageHeader is a CSA image header with CT reconstruction entries
// followed by 1-3 KiB of opaque trailing data.
func ctImageHeader(rng util.Source) []byte {
	header := buildCSAHeader([]csaElement{
		{Name: "SliceResolution", VM: 1, VR: "FD", SyngoDT: 4, NumItems: 1, Values: []string{"1.0"}},
		{Name: "ReconstructionAlgorithm", VM: 1, VR: "LO", SyngoDT: 19, NumItems: 1, Values: []string{"ADMIRE"}},
		{Name: "TablePosition", VM: 3, VR: "FD", SyngoDT: 4, NumItems: 3, Values: []string{"0.0", "0.0", "0.0"}},
		{Name: "DoseModulationType", VM: 1, VR: "CS", SyngoDT: 16, NumItems: 1, Values: []string{"CARE Dose4D"}},
		{Name: "ImaCoilString", VM: 1, VR: "LO", SyngoDT: 19, NumItems: 1, Values: []string{""}},
	})
	return append(header, randomBytes(rng, rng.IntN(2048)+1024)...)
}

// nonImageSequence mimics the nested private sequence at (0029,1102) that
// fragile readers fail to skip.
func nonImageSequence(rng util.Source) *dicom.Element {
	item := []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x0011}, "LO", []string{"SIEMENS CSA NON-IMAGE"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1100}, "OB", randomBytes(rng, rng.IntN(4096)+5120)),
	}
	return mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1102}, "SQ", [][]*dicom.Element{item})
}

func siemensElements(rng util.Source) []*dicom.Element {
	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x0010}, "LO", []string{"SIEMENS CSA HEADER"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1010}, "OB", ctImageHeader(rng)),
		nonImageSequence(rng),
	}
}

func geElements(rng util.Source) []*dicom.Element {
	softwareVersion := fmt.Sprintf("DV%d.%d_%d_M5", rng.IntN(10)+20, rng.IntN(10), rng.IntN(100))
	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0009, Element: 0x0010}, "LO", []string{"GEMS_IDEN_01"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0009, Element: 0x10E3}, "LO", []string{softwareVersion}),
		mustNewPrivateElement(tag.Tag{Group: 0x0043, Element: 0x0010}, "LO", []string{"GEMS_PARM_01"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0043, Element: 0x1039}, "IS", []string{
			fmt.Sprint(rng.IntN(1000)), fmt.Sprint(rng.IntN(1000)), fmt.Sprint(rng.IntN(1000)), fmt.Sprint(rng.IntN(1000)),
		}),
	}
}

func philipsElements(rng util.Source) []*dicom.Element {
	item := []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0011}, "LO", []string{"Philips MR Imaging DD 005"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x1100}, "DS", []string{fmt.Sprintf("%.10f", rng.Float64()*100+1.0)}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x1101}, "DS", []string{fmt.Sprintf("%.10f", rng.Float64()*10-5.0)}),
	}
	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x2001, Element: 0x0010}, "LO", []string{"Philips Imaging DD 001"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0010}, "LO", []string{"Philips MR Imaging DD 001"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x100E}, "SQ", [][]*dicom.Element{item}),
	}
}
