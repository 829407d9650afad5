package dicom

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/studyforge/internal/dicom/corruption"
	"github.com/mrsinham/studyforge/internal/dicom/modalities"
	"github.com/mrsinham/studyforge/internal/dicom/spatial"
	"github.com/mrsinham/studyforge/internal/failure"
	"github.com/mrsinham/studyforge/internal/image"
)

// fields describes every attribute routed through the fault injector.
// File meta, pixel module, SOP class and character set are never injected.
var fields = map[tag.Tag]corruption.Field{
	tag.PatientName:                {Name: "PatientName", Presence: corruption.Conditional, Class: corruption.Text},
	tag.PatientID:                  {Name: "PatientID", Presence: corruption.Conditional, Class: corruption.Text, MaxLength: 64},
	tag.PatientBirthDate:           {Name: "PatientBirthDate", Presence: corruption.Conditional, Class: corruption.Date},
	tag.PatientSex:                 {Name: "PatientSex", Presence: corruption.Conditional, Class: corruption.CodeString},
	tag.PatientAge:                 {Name: "PatientAge", Presence: corruption.Optional, Class: corruption.Other},
	tag.PatientWeight:              {Name: "PatientWeight", Presence: corruption.Optional, Class: corruption.DecimalString},
	tag.PatientSize:                {Name: "PatientSize", Presence: corruption.Optional, Class: corruption.DecimalString},
	tag.PatientComments:            {Name: "PatientComments", Presence: corruption.Optional, Class: corruption.Other},
	tag.StudyInstanceUID:           {Name: "StudyInstanceUID", Presence: corruption.Mandatory, Class: corruption.Identifier},
	tag.StudyDate:                  {Name: "StudyDate", Presence: corruption.Conditional, Class: corruption.Date},
	tag.StudyTime:                  {Name: "StudyTime", Presence: corruption.Conditional, Class: corruption.Time},
	tag.AccessionNumber:            {Name: "AccessionNumber", Presence: corruption.Conditional, Class: corruption.Text, MaxLength: 16},
	tag.StudyDescription:           {Name: "StudyDescription", Presence: corruption.Optional, Class: corruption.Text, MaxLength: 64},
	tag.ReferringPhysicianName:     {Name: "ReferringPhysicianName", Presence: corruption.Conditional, Class: corruption.Text},
	tag.StudyID:                    {Name: "StudyID", Presence: corruption.Conditional, Class: corruption.Text, MaxLength: 16},
	tag.RequestedProcedurePriority: {Name: "RequestedProcedurePriority", Presence: corruption.Optional, Class: corruption.CodeString},
	tag.Modality:                   {Name: "Modality", Presence: corruption.Mandatory, Class: corruption.CodeString},
	tag.SeriesInstanceUID:          {Name: "SeriesInstanceUID", Presence: corruption.Mandatory, Class: corruption.Identifier},
	tag.SeriesNumber:               {Name: "SeriesNumber", Presence: corruption.Conditional, Class: corruption.IntegerString},
	tag.SeriesDescription:          {Name: "SeriesDescription", Presence: corruption.Optional, Class: corruption.Text, MaxLength: 64},
	tag.ProtocolName:               {Name: "ProtocolName", Presence: corruption.Optional, Class: corruption.Text, MaxLength: 64},
	tag.FrameOfReferenceUID:        {Name: "FrameOfReferenceUID", Presence: corruption.Mandatory, Class: corruption.Identifier},
	tag.InstanceNumber:             {Name: "InstanceNumber", Presence: corruption.Conditional, Class: corruption.IntegerString},
	tag.AcquisitionNumber:          {Name: "AcquisitionNumber", Presence: corruption.Optional, Class: corruption.IntegerString},
	tag.ContentDate:                {Name: "ContentDate", Presence: corruption.Conditional, Class: corruption.Date},
	tag.ContentTime:                {Name: "ContentTime", Presence: corruption.Conditional, Class: corruption.Time},
	tag.SOPInstanceUID:             {Name: "SOPInstanceUID", Presence: corruption.Mandatory, Class: corruption.Identifier},
	tag.InstanceCreatorUID:         {Name: "InstanceCreatorUID", Presence: corruption.Optional, Class: corruption.Identifier},
	tag.ImagePositionPatient:       {Name: "ImagePositionPatient", Presence: corruption.Mandatory, Class: corruption.DecimalString},
	tag.ImageOrientationPatient:    {Name: "ImageOrientationPatient", Presence: corruption.Mandatory, Class: corruption.DecimalString},
	tag.SliceLocation:              {Name: "SliceLocation", Presence: corruption.Optional, Class: corruption.DecimalString},
	tag.SliceThickness:             {Name: "SliceThickness", Presence: corruption.Conditional, Class: corruption.DecimalString},
	tag.PixelSpacing:               {Name: "PixelSpacing", Presence: corruption.Mandatory, Class: corruption.DecimalString},
}

var supportedTransferSyntaxes = map[string]bool{
	ImplicitVRLittleEndian: true,
	ExplicitVRLittleEndian: true,
	ExplicitVRBigEndian:    true,
}

// BuildInput carries everything known about one image.
type BuildInput struct {
	Subject        Subject
	Study          StudySpec
	Series         SeriesSpec
	Instance       InstanceSpec
	Identity       Identity
	SeriesUID      string
	SOPInstanceUID string
	Modality       string
	Slice          spatial.Slice
	Samples        image.Samples
	Envelope       Envelope
	CharacterSet   CharacterSet
}

// Builder assembles records. Its injector decides which descriptive
// attributes are written and with which values.
type Builder struct {
	injector *corruption.Injector
}

// NewBuilder returns a builder using injector. A nil injector writes every
// value unchanged.
func NewBuilder(injector *corruption.Injector) *Builder {
	if injector == nil {
		injector = corruption.NewInjector(corruption.LevelNone, nil)
	}
	return &Builder{injector: injector}
}

// Build assembles the record of one image.
func (b *Builder) Build(in BuildInput) (*Record, error) {
	if in.SOPInstanceUID != in.Envelope.MediaStorageSOPInstanceUID {
		return nil, &failure.BuildError{
			Msg: "SOP Instance UID mismatch between dataset and file meta",
			Tag: "MediaStorageSOPInstanceUID",
		}
	}
	if !supportedTransferSyntaxes[in.Envelope.TransferSyntaxUID] {
		return nil, &failure.BuildError{
			Msg: fmt.Sprintf("Unsupported Transfer Syntax UID: %s", in.Envelope.TransferSyntaxUID),
			Tag: "TransferSyntaxUID",
		}
	}

	rec := &Record{TransferSyntax: in.Envelope.TransferSyntaxUID}
	b.writeFileMeta(rec, in.Envelope)

	name := EncodeName(in.Subject.Name, in.CharacterSet.UseIdeographic, in.CharacterSet.UsePhonetic)
	charset, err := ResolveCharacterSet(in.CharacterSet.Specific, name)
	if err != nil {
		return nil, err
	}
	if len(charset) > 0 {
		rec.Set(mustNewElement(tag.SpecificCharacterSet, charset))
	}
	codec := newTextCodec(charset)

	if err := b.writePatient(rec, in, name, codec); err != nil {
		return nil, err
	}
	if err := b.writeStudy(rec, in, codec); err != nil {
		return nil, err
	}
	b.writeSeries(rec, in)
	b.writeInstance(rec, in)
	if err := b.writePixels(rec, in.Samples); err != nil {
		return nil, err
	}
	return rec, nil
}

// put routes values through the injector and writes what survives.
func (b *Builder) put(rec *Record, t tag.Tag, values ...string) {
	f, ok := fields[t]
	if !ok {
		panic(fmt.Sprintf("no field description for %v", t))
	}
	out, present := b.injector.Apply(f, values...)
	if !present {
		return
	}
	rec.Set(mustNewElement(t, out))
}

// putText encodes s with codec before routing it through the injector.
func (b *Builder) putText(rec *Record, codec textCodec, t tag.Tag, s string) error {
	encoded, err := codec.Encode(fields[t].Name, s)
	if err != nil {
		return err
	}
	b.put(rec, t, encoded)
	return nil
}

func (b *Builder) writeFileMeta(rec *Record, env Envelope) {
	sopClass := env.MediaStorageSOPClassUID
	if sopClass == "" {
		sopClass = modalities.CTImageStorage
	}
	rec.Set(mustNewElement(tag.MediaStorageSOPClassUID, []string{sopClass}))
	rec.Set(mustNewElement(tag.MediaStorageSOPInstanceUID, []string{env.MediaStorageSOPInstanceUID}))
	rec.Set(mustNewElement(tag.TransferSyntaxUID, []string{env.TransferSyntaxUID}))
	if env.ImplementationClassUID != "" {
		rec.Set(mustNewElement(tag.ImplementationClassUID, []string{env.ImplementationClassUID}))
	}
	if env.ImplementationVersionName != "" {
		rec.Set(mustNewElement(tag.ImplementationVersionName, []string{env.ImplementationVersionName}))
	}
	rec.Set(mustNewElement(tag.SOPClassUID, []string{sopClass}))
}

func (b *Builder) writePatient(rec *Record, in BuildInput, name string, codec textCodec) error {
	s := in.Subject

	age := s.Age
	if s.BirthDate != "" && in.Study.Date != "" {
		computed, err := CivilAge(s.BirthDate, in.Study.Date)
		if err != nil {
			return err
		}
		if age == "" {
			age = computed
		}
	}

	if err := b.putText(rec, codec, tag.PatientName, name); err != nil {
		return err
	}
	b.put(rec, tag.PatientID, s.ID)
	b.put(rec, tag.PatientBirthDate, s.BirthDate)
	b.put(rec, tag.PatientSex, s.Sex)
	if age != "" {
		b.put(rec, tag.PatientAge, age)
	}
	if s.Weight != nil {
		b.put(rec, tag.PatientWeight, modalities.FormatDS(*s.Weight))
	}
	if s.Size != nil {
		b.put(rec, tag.PatientSize, modalities.FormatDS(*s.Size))
	}
	if s.Comments != "" {
		if err := b.putText(rec, codec, tag.PatientComments, s.Comments); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) writeStudy(rec *Record, in BuildInput, codec textCodec) error {
	st := in.Study
	b.put(rec, tag.StudyInstanceUID, in.Identity.StudyUID)
	b.put(rec, tag.StudyDate, st.Date)
	b.put(rec, tag.StudyTime, st.Time)
	b.put(rec, tag.AccessionNumber, st.AccessionNumber)
	if st.Description != "" {
		if err := b.putText(rec, codec, tag.StudyDescription, st.Description); err != nil {
			return err
		}
	}
	if st.ReferringPhysician != "" {
		if err := b.putText(rec, codec, tag.ReferringPhysicianName, st.ReferringPhysician); err != nil {
			return err
		}
	}
	b.put(rec, tag.StudyID, "")
	if p := st.Priority.String(); p != "" {
		b.put(rec, tag.RequestedProcedurePriority, p)
	}
	return nil
}

func (b *Builder) writeSeries(rec *Record, in BuildInput) {
	modality := in.Modality
	if modality == "" {
		modality = string(modalities.CT)
	}
	b.put(rec, tag.Modality, modality)
	b.put(rec, tag.SeriesInstanceUID, in.SeriesUID)
	b.put(rec, tag.SeriesNumber, modalities.FormatIS(in.Series.Number))
	if in.Series.Description != "" {
		b.put(rec, tag.SeriesDescription, in.Series.Description)
	}
	if in.Series.Protocol != "" {
		b.put(rec, tag.ProtocolName, in.Series.Protocol)
	}
	b.put(rec, tag.FrameOfReferenceUID, in.Identity.FrameOfReferenceUID)
}

func (b *Builder) writeInstance(rec *Record, in BuildInput) {
	acquisition := in.Instance.AcquisitionNumber
	if acquisition == 0 {
		acquisition = 1
	}
	b.put(rec, tag.InstanceNumber, modalities.FormatIS(in.Instance.Number))
	b.put(rec, tag.AcquisitionNumber, modalities.FormatIS(acquisition))
	b.put(rec, tag.ContentDate, in.Study.Date)
	b.put(rec, tag.ContentTime, in.Study.Time)

	b.put(rec, tag.SOPInstanceUID, in.SOPInstanceUID)
	if in.Identity.InstanceCreatorUID != "" {
		b.put(rec, tag.InstanceCreatorUID, in.Identity.InstanceCreatorUID)
	}

	sl := in.Slice
	b.put(rec, tag.ImagePositionPatient, formatAll(sl.Position[:])...)
	b.put(rec, tag.ImageOrientationPatient, formatAll(sl.Orientation[:])...)
	b.put(rec, tag.SliceLocation, modalities.FormatDS(sl.SliceLocation))
	b.put(rec, tag.SliceThickness, modalities.FormatDS(sl.Thickness))
	b.put(rec, tag.PixelSpacing, formatAll(sl.PixelSpacing[:])...)
}

func formatAll(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = modalities.FormatDS(v)
	}
	return out
}

// writePixels writes the image pixel module describing samples.
func (b *Builder) writePixels(rec *Record, samples image.Samples) error {
	var (
		info        dicom.PixelDataInfo
		bitsStored  int
		bitsAlloc   int
		signed      int
		rows, cols  int
		pixelsCount int
	)

	switch s := samples.(type) {
	case *image.Gray8:
		cols, rows = s.Dimensions()
		pixelsCount = rows * cols
		if len(s.Pix) != pixelsCount {
			return &failure.BuildError{Msg: fmt.Sprintf("pixel count %d does not match %dx%d", len(s.Pix), cols, rows), Tag: "PixelData"}
		}
		nativeFrame := frame.NewNativeFrame[uint8](8, rows, cols, pixelsCount, 1)
		copy(nativeFrame.RawData, s.Pix)
		info = pixelDataInfo(nativeFrame)
		bitsAlloc, bitsStored, signed = 8, 8, 0

	case *image.Signed16:
		cols, rows = s.Dimensions()
		pixelsCount = rows * cols
		if len(s.Pix) != pixelsCount {
			return &failure.BuildError{Msg: fmt.Sprintf("pixel count %d does not match %dx%d", len(s.Pix), cols, rows), Tag: "PixelData"}
		}
		if s.BitsStored < 1 || s.BitsStored > 16 {
			return &failure.BuildError{Msg: fmt.Sprintf("unsupported bits stored: %d", s.BitsStored), Tag: "BitsStored"}
		}
		nativeFrame := frame.NewNativeFrame[uint16](16, rows, cols, pixelsCount, 1)
		for i, v := range s.Pix {
			nativeFrame.RawData[i] = uint16(v)
		}
		info = pixelDataInfo(nativeFrame)
		bitsAlloc, bitsStored, signed = 16, s.BitsStored, 1

		centers, widths := modalities.WindowValues(modalities.RadiographicWindows)
		rec.Set(mustNewElement(tag.RescaleIntercept, []string{"-1024"}))
		rec.Set(mustNewElement(tag.RescaleSlope, []string{"1"}))
		rec.Set(mustNewElement(tag.WindowCenter, centers))
		rec.Set(mustNewElement(tag.WindowWidth, widths))

	default:
		return &failure.BuildError{Msg: fmt.Sprintf("Unsupported pixel data: %T", samples), Tag: "PixelData"}
	}

	rec.Set(mustNewElement(tag.Rows, []int{rows}))
	rec.Set(mustNewElement(tag.Columns, []int{cols}))
	rec.Set(mustNewElement(tag.SamplesPerPixel, []int{1}))
	rec.Set(mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}))
	rec.Set(mustNewElement(tag.BitsAllocated, []int{bitsAlloc}))
	rec.Set(mustNewElement(tag.BitsStored, []int{bitsStored}))
	rec.Set(mustNewElement(tag.HighBit, []int{bitsStored - 1}))
	rec.Set(mustNewElement(tag.PixelRepresentation, []int{signed}))
	rec.Set(mustNewElement(tag.PixelData, info))
	return nil
}

func pixelDataInfo[I uint8 | uint16](nativeFrame *frame.NativeFrame[I]) dicom.PixelDataInfo {
	return dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}
}
