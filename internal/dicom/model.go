package dicom

import (
	"github.com/mrsinham/studyforge/internal/image"
	"github.com/mrsinham/studyforge/internal/util"
)

// Uncompressed transfer syntaxes a record may be encoded with.
const (
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndian    = "1.2.840.10008.1.2.2"
)

// DefaultImplementationVersionName is written when the template names none.
const DefaultImplementationVersionName = "DICOM_GEN_1.1"

// PersonName holds the three component groups of a person name.
type PersonName struct {
	Alphabetic  string
	Ideographic string
	Phonetic    string
}

// Subject is the patient an image belongs to.
type Subject struct {
	ID        string
	Name      PersonName
	BirthDate string // YYYYMMDD
	Sex       string // M, F or O
	Age       string // NNNY; derived from the birth and study dates when empty
	Weight    *float64
	Size      *float64 // meters
	Comments  string
}

// StudySpec describes the study shared by every series.
type StudySpec struct {
	AccessionNumber    string
	Date               string // YYYYMMDD
	Time               string // HHMMSS
	Description        string
	ReferringPhysician string
	Priority           util.Priority
}

// SeriesSpec describes one series and its slice geometry.
type SeriesSpec struct {
	Number       int
	Description  string
	Protocol     string
	ImageCount   int
	Thickness    float64
	Spacing      float64
	StartZ       float64
	PixelSpacing [2]float64 // zero selects the default spacing
}

// InstanceSpec numbers one image inside its series.
type InstanceSpec struct {
	Number            int
	AcquisitionNumber int
}

// Identity holds the identifiers shared by every record of a study.
// It is read-only once built.
type Identity struct {
	StudyUID               string
	FrameOfReferenceUID    string
	ImplementationClassUID string
	InstanceCreatorUID     string
}

// Envelope is the file meta information of one record.
type Envelope struct {
	MediaStorageSOPClassUID    string
	MediaStorageSOPInstanceUID string
	TransferSyntaxUID          string
	ImplementationClassUID     string
	ImplementationVersionName  string
}

// CharacterSet controls how text values are declared and encoded.
// A nil Specific lets the builder pick one from the patient name.
type CharacterSet struct {
	Specific       *string
	UseIdeographic bool
	UsePhonetic    bool
}

// FaultPolicy selects the deliberate defects injected into a study.
type FaultPolicy struct {
	Level                   string
	AllowInvalidInstanceUID bool
	// Probability is validated but the invalid identifier rate is fixed.
	Probability      float64
	Vendors          []string
	MalformedLengths bool
}

// Request is a validated generation request for one study.
type Request struct {
	JobName          string
	Output           string
	Subject          Subject
	Study            StudySpec
	Series           []SeriesSpec
	ModalityTemplate string
	HospitalTemplate string
	UIDMethod        string
	UIDRoot          string
	Content          image.Content
	TransferSyntax   string
	// CharacterSet holds the job's defaults; the template overrides them.
	CharacterSet CharacterSet
	// ExtraTags sets registry attributes by keyword on every record.
	ExtraTags map[string]string
	Fault     FaultPolicy
}

// TotalImages returns the number of images over every series.
func (r Request) TotalImages() int {
	total := 0
	for _, s := range r.Series {
		total += s.ImageCount
	}
	return total
}
