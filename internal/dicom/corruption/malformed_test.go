package corruption

import (
	"encoding/binary"
	"testing"
)

// stream returns a fake dataset tail: a preamble, a decoy PixelData tag
// inside an earlier value, then the real PixelData element.
func stream(order binary.ByteOrder, explicit bool, vr string, pixels int) []byte {
	tagBytes := make([]byte, 4)
	order.PutUint16(tagBytes[0:2], 0x7FE0)
	order.PutUint16(tagBytes[2:4], 0x0010)

	data := []byte("DICM-preamble")
	data = append(data, tagBytes...)
	data = append(data, 'O', 'W', 0, 0, 2, 0, 0, 0) // decoy with wrong length
	data = append(data, tagBytes...)
	if explicit {
		data = append(data, vr[0], vr[1], 0, 0)
	}
	vl := make([]byte, 4)
	order.PutUint32(vl, uint32(pixels))
	data = append(data, vl...)
	return append(data, make([]byte, pixels)...)
}

func TestPatchOddPixelLength(t *testing.T) {
	tests := []struct {
		name     string
		syntax   string
		order    binary.ByteOrder
		explicit bool
		vr       string
		pixels   int
		want     bool
	}{
		{"explicit little", explicitVRLittleEndian, binary.LittleEndian, true, "OW", 64, true},
		{"explicit big", explicitVRBigEndian, binary.BigEndian, true, "OW", 64, true},
		{"implicit little", implicitVRLittleEndian, binary.LittleEndian, false, "", 64, true},
		{"explicit OB", explicitVRLittleEndian, binary.LittleEndian, true, "OB", 16, true},
		{"odd already", explicitVRLittleEndian, binary.LittleEndian, true, "OW", 63, false},
		{"wrong VR", explicitVRLittleEndian, binary.LittleEndian, true, "US", 64, false},
		{"unsupported syntax", "1.2.840.10008.1.2.4.50", binary.LittleEndian, true, "OW", 64, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := stream(tc.order, tc.explicit, tc.vr, tc.pixels)
			got := PatchOddPixelLength(data, tc.syntax)
			if got != tc.want {
				t.Fatalf("PatchOddPixelLength() = %v, want %v", got, tc.want)
			}
			if !got {
				return
			}
			vlAt := len(data) - tc.pixels - 4
			if vl := tc.order.Uint32(data[vlAt:]); vl != uint32(tc.pixels-1) {
				t.Errorf("VL = %d, want %d", vl, tc.pixels-1)
			}
			// decoy untouched
			decoyVL := tc.order.Uint32(data[len("DICM-preamble")+8:])
			if decoyVL == 1 {
				t.Error("decoy element should not be patched")
			}
		})
	}
}
