package corruption

import (
	"bytes"
	"encoding/binary"
)

// Uncompressed transfer syntaxes understood by PatchOddPixelLength.
const (
	implicitVRLittleEndian = "1.2.840.10008.1.2"
	explicitVRLittleEndian = "1.2.840.10008.1.2.1"
	explicitVRBigEndian    = "1.2.840.10008.1.2.2"
)

// PatchOddPixelLength rewrites the value length of the trailing PixelData
// element of an encoded Part 10 stream to an odd number (original - 1),
// reproducing the reader warning "Length of element (7fe0,0010) is not a
// multiple of 2". It reports whether the stream was changed.
func PatchOddPixelLength(data []byte, transferSyntax string) bool {
	var order binary.ByteOrder = binary.LittleEndian
	explicit := true
	switch transferSyntax {
	case implicitVRLittleEndian:
		explicit = false
	case explicitVRLittleEndian:
	case explicitVRBigEndian:
		order = binary.BigEndian
	default:
		return false
	}

	tagBytes := make([]byte, 4)
	order.PutUint16(tagBytes[0:2], 0x7FE0)
	order.PutUint16(tagBytes[2:4], 0x0010)

	// PixelData is the last element, so its length must cover the rest of
	// the stream. That rules out matches inside earlier values.
	for i := bytes.Index(data, tagBytes); i >= 0; {
		if vlAt, ok := pixelLengthOffset(data, i, explicit, order); ok {
			vl := order.Uint32(data[vlAt : vlAt+4])
			if vl > 1 && vl%2 == 0 {
				order.PutUint32(data[vlAt:vlAt+4], vl-1)
				return true
			}
			return false
		}
		j := bytes.Index(data[i+1:], tagBytes)
		if j < 0 {
			break
		}
		i += j + 1
	}
	return false
}

// pixelLengthOffset returns the offset of the value length field of an
// element starting at i when that element extends exactly to the end of data.
func pixelLengthOffset(data []byte, i int, explicit bool, order binary.ByteOrder) (int, bool) {
	headerLen, vlAt := 8, i+4
	if explicit {
		headerLen, vlAt = 12, i+8
	}
	if i+headerLen > len(data) {
		return 0, false
	}
	if explicit {
		if vr := string(data[i+4 : i+6]); vr != "OW" && vr != "OB" {
			return 0, false
		}
	}
	return vlAt, int(order.Uint32(data[vlAt:vlAt+4])) == len(data)-i-headerLen
}
