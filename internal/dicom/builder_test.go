package dicom

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/studyforge/internal/dicom/corruption"
	"github.com/mrsinham/studyforge/internal/dicom/modalities"
	"github.com/mrsinham/studyforge/internal/dicom/spatial"
	"github.com/mrsinham/studyforge/internal/failure"
	"github.com/mrsinham/studyforge/internal/image"
	"github.com/mrsinham/studyforge/internal/util"
)

const testSOPUID = "1.2.3.4.5.67"

func gray(w, h int) *image.Gray8 {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = uint8(i)
	}
	return &image.Gray8{Width: w, Height: h, Pix: pix}
}

func baseInput() BuildInput {
	weight := 65.5
	size := 1.72
	calc := spatial.New(5, 5, 0)
	return BuildInput{
		Subject: Subject{
			ID:        "P001",
			Name:      PersonName{Alphabetic: "Doe^John"},
			BirthDate: "19800101",
			Sex:       "M",
			Weight:    &weight,
			Size:      &size,
		},
		Study: StudySpec{
			AccessionNumber: "ACC001",
			Date:            "20240115",
			Time:            "103000",
			Description:     "CHEST",
			Priority:        util.PriorityRoutine,
		},
		Series:   SeriesSpec{Number: 1, Description: "AXIAL", ImageCount: 1, Thickness: 5, Spacing: 5},
		Instance: InstanceSpec{Number: 1},
		Identity: Identity{
			StudyUID:               "1.2.3.1",
			FrameOfReferenceUID:    "1.2.3.2",
			ImplementationClassUID: "1.2.3.3",
			InstanceCreatorUID:     "1.2.3.4",
		},
		SeriesUID:      "1.2.3.10",
		SOPInstanceUID: testSOPUID,
		Modality:       "CT",
		Slice:          calc.Calculate(0),
		Samples:        gray(4, 4),
		Envelope: Envelope{
			MediaStorageSOPClassUID:    modalities.CTImageStorage,
			MediaStorageSOPInstanceUID: testSOPUID,
			TransferSyntaxUID:          ExplicitVRLittleEndian,
			ImplementationClassUID:     "1.2.3.3",
			ImplementationVersionName:  DefaultImplementationVersionName,
		},
		CharacterSet: CharacterSet{UseIdeographic: true, UsePhonetic: true},
	}
}

func TestBuild_Basic(t *testing.T) {
	rec, err := NewBuilder(nil).Build(baseInput())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	tests := []struct {
		tag  tag.Tag
		want []string
	}{
		{tag.PatientName, []string{"Doe^John"}},
		{tag.PatientID, []string{"P001"}},
		{tag.PatientAge, []string{"044Y"}},
		{tag.PatientWeight, []string{"65.5"}},
		{tag.PatientSize, []string{"1.72"}},
		{tag.StudyInstanceUID, []string{"1.2.3.1"}},
		{tag.StudyID, []string{""}},
		{tag.RequestedProcedurePriority, []string{"ROUTINE"}},
		{tag.Modality, []string{"CT"}},
		{tag.SeriesNumber, []string{"1"}},
		{tag.InstanceNumber, []string{"1"}},
		{tag.AcquisitionNumber, []string{"1"}},
		{tag.ContentDate, []string{"20240115"}},
		{tag.SOPInstanceUID, []string{testSOPUID}},
		{tag.SOPClassUID, []string{modalities.CTImageStorage}},
		{tag.MediaStorageSOPInstanceUID, []string{testSOPUID}},
		{tag.ImagePositionPatient, []string{"0", "0", "0"}},
		{tag.ImageOrientationPatient, []string{"1", "0", "0", "0", "1", "0"}},
		{tag.PixelSpacing, []string{"0.5", "0.5"}},
		{tag.SliceThickness, []string{"5"}},
		{tag.PhotometricInterpretation, []string{"MONOCHROME2"}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, rec.Strings(tc.tag)); diff != "" {
			t.Errorf("%v mismatch (-want +got):\n%s", tc.tag, diff)
		}
	}

	for _, absent := range []tag.Tag{tag.SpecificCharacterSet, tag.ProtocolName, tag.PatientComments, tag.RescaleIntercept} {
		if _, ok := rec.Get(absent); ok {
			t.Errorf("%v should be absent", absent)
		}
	}
}

func TestBuild_SOPInstanceMismatch(t *testing.T) {
	in := baseInput()
	in.Envelope.MediaStorageSOPInstanceUID = "9.9.9"

	_, err := NewBuilder(nil).Build(in)
	var be *failure.BuildError
	if !errors.As(err, &be) || be.Tag != "MediaStorageSOPInstanceUID" {
		t.Fatalf("expected MediaStorageSOPInstanceUID BuildError, got %v", err)
	}
}

func TestBuild_UnsupportedTransferSyntax(t *testing.T) {
	in := baseInput()
	in.Envelope.TransferSyntaxUID = "1.2.840.10008.1.2.4.50"

	_, err := NewBuilder(nil).Build(in)
	var be *failure.BuildError
	if !errors.As(err, &be) || be.Tag != "TransferSyntaxUID" {
		t.Fatalf("expected TransferSyntaxUID BuildError, got %v", err)
	}
}

func TestBuild_StudyBeforeBirth(t *testing.T) {
	in := baseInput()
	in.Subject.BirthDate = "20250101"

	_, err := NewBuilder(nil).Build(in)
	var be *failure.BuildError
	if !errors.As(err, &be) || be.Tag != "PatientAge" {
		t.Fatalf("expected PatientAge BuildError, got %v", err)
	}
}

func TestBuild_ExplicitAgeKept(t *testing.T) {
	in := baseInput()
	in.Subject.Age = "050Y"

	rec, err := NewBuilder(nil).Build(in)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := rec.Strings(tag.PatientAge); len(got) != 1 || got[0] != "050Y" {
		t.Errorf("PatientAge = %v, want [050Y]", got)
	}
}

func TestBuild_JapaneseName(t *testing.T) {
	in := baseInput()
	in.Subject.Name = PersonName{Alphabetic: "Yamada^Tarou", Ideographic: "山田^太郎", Phonetic: "やまだ^たろう"}

	rec, err := NewBuilder(nil).Build(in)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if diff := cmp.Diff(DefaultJapaneseCharacterSet, rec.Strings(tag.SpecificCharacterSet)); diff != "" {
		t.Errorf("SpecificCharacterSet mismatch (-want +got):\n%s", diff)
	}
	name := rec.Strings(tag.PatientName)
	if len(name) != 1 || !bytes.Contains([]byte(name[0]), []byte("\x1b$B")) {
		t.Errorf("PatientName should be ISO 2022 encoded, got %q", name)
	}
}

func TestBuild_EmptyCharacterSetWithJapaneseName(t *testing.T) {
	in := baseInput()
	in.Subject.Name = PersonName{Alphabetic: "Yamada", Ideographic: "山田"}
	empty := ""
	in.CharacterSet.Specific = &empty

	_, err := NewBuilder(nil).Build(in)
	var be *failure.BuildError
	if !errors.As(err, &be) || be.Tag != "SpecificCharacterSet" {
		t.Fatalf("expected SpecificCharacterSet BuildError, got %v", err)
	}
}

func TestBuild_PixelModule(t *testing.T) {
	t.Run("gray8", func(t *testing.T) {
		rec, err := NewBuilder(nil).Build(baseInput())
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		assertInts(t, rec, map[tag.Tag]int{
			tag.Rows: 4, tag.Columns: 4, tag.BitsAllocated: 8, tag.BitsStored: 8,
			tag.HighBit: 7, tag.PixelRepresentation: 0, tag.SamplesPerPixel: 1,
		})
	})

	t.Run("signed16", func(t *testing.T) {
		in := baseInput()
		in.Samples = &image.Signed16{Width: 3, Height: 2, BitsStored: 12, Pix: []int16{0, 1, 2, 3, 4, 4095}}
		rec, err := NewBuilder(nil).Build(in)
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		assertInts(t, rec, map[tag.Tag]int{
			tag.Rows: 2, tag.Columns: 3, tag.BitsAllocated: 16, tag.BitsStored: 12,
			tag.HighBit: 11, tag.PixelRepresentation: 1,
		})
		if diff := cmp.Diff([]string{"40", "400"}, rec.Strings(tag.WindowCenter)); diff != "" {
			t.Errorf("WindowCenter mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"400", "1500"}, rec.Strings(tag.WindowWidth)); diff != "" {
			t.Errorf("WindowWidth mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"-1024"}, rec.Strings(tag.RescaleIntercept)); diff != "" {
			t.Errorf("RescaleIntercept mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		in := baseInput()
		in.Samples = &image.Gray8{Width: 4, Height: 4, Pix: make([]uint8, 3)}
		if _, err := NewBuilder(nil).Build(in); err == nil {
			t.Error("expected error for short pixel buffer")
		}
	})
}

func assertInts(t *testing.T, rec *Record, want map[tag.Tag]int) {
	t.Helper()
	for tg, v := range want {
		e, ok := rec.Get(tg)
		if !ok {
			t.Errorf("%v missing", tg)
			continue
		}
		got, _ := e.Value.GetValue().([]int)
		if len(got) != 1 || got[0] != v {
			t.Errorf("%v = %v, want %d", tg, got, v)
		}
	}
}

func TestBuild_ModerateOmitsMandatory(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	b := NewBuilder(corruption.NewInjector(corruption.LevelModerate, rng))

	rec, err := b.Build(baseInput())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	for _, mandatory := range []tag.Tag{tag.StudyInstanceUID, tag.SeriesInstanceUID, tag.SOPInstanceUID, tag.Modality, tag.PixelSpacing} {
		if _, ok := rec.Get(mandatory); ok {
			t.Errorf("%v should be omitted at moderate level", mandatory)
		}
	}
	for _, kept := range []tag.Tag{tag.MediaStorageSOPInstanceUID, tag.SOPClassUID, tag.PixelData, tag.Rows} {
		if _, ok := rec.Get(kept); !ok {
			t.Errorf("%v must never be injected", kept)
		}
	}
}

func TestBuild_MildCorruptsFormats(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	b := NewBuilder(corruption.NewInjector(corruption.LevelMild, rng))

	rec, err := b.Build(baseInput())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := rec.Strings(tag.StudyDate); len(got) != 1 || got[0] != corruption.InvalidDate {
		t.Errorf("StudyDate = %v, want %s", got, corruption.InvalidDate)
	}
	if got := rec.Strings(tag.StudyInstanceUID); len(got) != 1 || got[0] != corruption.OverlongIdentifier {
		t.Errorf("StudyInstanceUID = %v, want overlong identifier", got)
	}
	if got := rec.Strings(tag.PixelSpacing); len(got) != 2 || got[0] != corruption.InvalidDecimal || got[1] != corruption.InvalidDecimal {
		t.Errorf("PixelSpacing = %v, want both components replaced", got)
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	japanese := PersonName{Alphabetic: "Yamada^Tarou", Ideographic: "山田^太郎", Phonetic: "やまだ^たろう"}
	tests := []struct {
		name         string
		transfer     string
		patient      PersonName
		wantName     string
		wantCharsets []string
	}{
		{"implicit little endian", ImplicitVRLittleEndian, PersonName{Alphabetic: "Doe^John"}, "Doe^John", nil},
		{"explicit little endian", ExplicitVRLittleEndian, PersonName{Alphabetic: "Doe^John"}, "Doe^John", nil},
		{"explicit big endian", ExplicitVRBigEndian, PersonName{Alphabetic: "Doe^John"}, "Doe^John", nil},
		{"implicit little endian japanese", ImplicitVRLittleEndian, japanese, "Yamada^Tarou=山田^太郎=やまだ^たろう", DefaultJapaneseCharacterSet},
		{"explicit little endian japanese", ExplicitVRLittleEndian, japanese, "Yamada^Tarou=山田^太郎=やまだ^たろう", DefaultJapaneseCharacterSet},
		{"explicit big endian japanese", ExplicitVRBigEndian, japanese, "Yamada^Tarou=山田^太郎=やまだ^たろう", DefaultJapaneseCharacterSet},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			in.Envelope.TransferSyntaxUID = tc.transfer
			in.Subject.Name = tc.patient
			rec, err := NewBuilder(nil).Build(in)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			data, err := rec.Bytes()
			if err != nil {
				t.Fatalf("Bytes() error: %v", err)
			}

			ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			for tg, want := range map[tag.Tag]string{
				tag.SOPInstanceUID:    testSOPUID,
				tag.PatientID:         "P001",
				tag.StudyDate:         "20240115",
				tag.PatientName:       tc.wantName,
				tag.TransferSyntaxUID: tc.transfer,
			} {
				e, err := ds.FindElementByTag(tg)
				if err != nil {
					t.Errorf("%v not found: %v", tg, err)
					continue
				}
				got := dicom.MustGetStrings(e.Value)
				if len(got) != 1 || strings.TrimRight(got[0], " \x00") != want {
					t.Errorf("%v = %q, want %q", tg, got, want)
				}
			}

			var charsets []string
			if e, err := ds.FindElementByTag(tag.SpecificCharacterSet); err == nil {
				charsets = dicom.MustGetStrings(e.Value)
			}
			if diff := cmp.Diff(tc.wantCharsets, charsets); diff != "" {
				t.Errorf("SpecificCharacterSet mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecord_EncodeCachedUntilSet(t *testing.T) {
	rec, err := NewBuilder(nil).Build(baseInput())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := rec.Encode(); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	first, _ := rec.Bytes()
	cached, _ := rec.Bytes()
	if &first[0] != &cached[0] {
		t.Error("Bytes() should return the encoded data after Encode")
	}

	rec.Set(mustNewElement(tag.Manufacturer, []string{"Changed Vendor"}))
	changed, err := rec.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error: %v", err)
	}
	if bytes.Equal(first, changed) {
		t.Error("Set should drop the encoded data")
	}
}

func TestRecord_SetReplaces(t *testing.T) {
	rec := &Record{}
	rec.Set(mustNewElement(tag.Manufacturer, []string{"A"}))
	rec.Set(mustNewElement(tag.Manufacturer, []string{"B"}))
	if rec.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", rec.Len())
	}
	if got := rec.Strings(tag.Manufacturer); got[0] != "B" {
		t.Errorf("Manufacturer = %v, want [B]", got)
	}
}

func TestRecord_DatasetSorted(t *testing.T) {
	rec := &Record{}
	rec.Set(mustNewElement(tag.PatientID, []string{"P"}))
	rec.Set(mustNewElement(tag.Modality, []string{"CT"}))
	rec.Set(mustNewElement(tag.TransferSyntaxUID, []string{ExplicitVRLittleEndian}))

	ds := rec.Dataset()
	for i := 1; i < len(ds.Elements); i++ {
		a, b := ds.Elements[i-1].Tag, ds.Elements[i].Tag
		if a.Group > b.Group || (a.Group == b.Group && a.Element > b.Element) {
			t.Errorf("elements out of order: %v before %v", a, b)
		}
	}
}
