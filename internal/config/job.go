// Package config loads and validates job files and the patient master.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/studyforge/internal/dicom"
	"github.com/mrsinham/studyforge/internal/dicom/corruption"
	"github.com/mrsinham/studyforge/internal/dicom/uid"
	"github.com/mrsinham/studyforge/internal/failure"
	"github.com/mrsinham/studyforge/internal/image"
	"github.com/mrsinham/studyforge/internal/util"
)

// Defaults applied to absent job values.
const (
	DefaultSliceThickness = 5.0
	DefaultSliceSpacing   = 5.0
	DefaultCharacterSet   = `ISO 2022 IR 6\ISO 2022 IR 87`
)

// Content modes accepted in pixel_spec.mode.
const (
	ModeSimpleText   = "simple_text"
	ModeCTRealistic  = "ct_realistic"
	ModeLabel        = "label"
	ModeRadiographic = "radiographic"
)

// PersonName is the three-component patient name.
type PersonName struct {
	Alphabetic  string `yaml:"alphabetic"`
	Ideographic string `yaml:"ideographic,omitempty"`
	Phonetic    string `yaml:"phonetic,omitempty"`
}

// Patient is one patient, as found in a job or in the patient master.
type Patient struct {
	ID        string     `yaml:"patient_id"`
	Name      PersonName `yaml:"patient_name"`
	BirthDate string     `yaml:"birth_date"`
	Sex       string     `yaml:"sex"`
	Age       string     `yaml:"age,omitempty"`
	Weight    *float64   `yaml:"weight,omitempty"`
	Size      *float64   `yaml:"size,omitempty"` // meters
	Comments  string     `yaml:"patient_comments,omitempty"`
}

// Study is the job's study section.
type Study struct {
	AccessionNumber    string `yaml:"accession_number"`
	Date               string `yaml:"study_date"`
	Time               string `yaml:"study_time"`
	Description        string `yaml:"study_description,omitempty"`
	ReferringPhysician string `yaml:"referring_physician_name,omitempty"`
	NumSeries          int    `yaml:"num_series,omitempty"`
	Priority           string `yaml:"priority,omitempty"`
}

// Series is one entry of series_list.
type Series struct {
	Number       int       `yaml:"series_number"`
	Description  string    `yaml:"series_description,omitempty"`
	NumImages    int       `yaml:"num_images"`
	Protocol     string    `yaml:"protocol_name,omitempty"`
	Thickness    *float64  `yaml:"slice_thickness,omitempty"`
	Spacing      *float64  `yaml:"slice_spacing,omitempty"`
	StartZ       float64   `yaml:"start_z,omitempty"`
	PixelSpacing []float64 `yaml:"pixel_spacing,omitempty"`
}

// PixelSpec selects and parameterizes the image content.
type PixelSpec struct {
	Mode            string  `yaml:"mode"`
	Width           int     `yaml:"width,omitempty"`
	Height          int     `yaml:"height,omitempty"`
	BackgroundColor *int    `yaml:"background_color,omitempty"`
	TextColor       *int    `yaml:"text_color,omitempty"`
	FontSize        float64 `yaml:"font_size,omitempty"`
	Pattern         string  `yaml:"pattern,omitempty"`
	BitsStored      int     `yaml:"bits_stored,omitempty"`
}

// TransferSyntax names the encoding of every file.
type TransferSyntax struct {
	UID string `yaml:"uid"`
}

// CharacterSet controls text encoding and person name components.
type CharacterSet struct {
	SpecificCharacterSet *string `yaml:"specific_character_set"`
	UseIdeographic       *bool   `yaml:"use_ideographic"`
	UsePhonetic          *bool   `yaml:"use_phonetic"`
}

// Abnormal selects injected faults.
type Abnormal struct {
	Level                    string   `yaml:"level"`
	AllowInvalidSOPUID       bool     `yaml:"allow_invalid_sop_uid"`
	InvalidSOPUIDProbability *float64 `yaml:"invalid_sop_uid_probability,omitempty"`
	Vendors                  []string `yaml:"vendors,omitempty"`
	MalformedLengths         bool     `yaml:"malformed_lengths,omitempty"`
}

// Job is a generation job file.
type Job struct {
	Name             string            `yaml:"job_name"`
	OutputDir        string            `yaml:"output_dir"`
	Patient          Patient           `yaml:"patient"`
	Study            Study             `yaml:"study"`
	Series           []Series          `yaml:"series_list"`
	ModalityTemplate string            `yaml:"modality_template"`
	HospitalTemplate string            `yaml:"hospital_template,omitempty"`
	UIDMethod        string            `yaml:"uid_method,omitempty"`
	UIDRoot          string            `yaml:"uid_custom_root,omitempty"`
	PixelSpec        PixelSpec         `yaml:"pixel_spec"`
	TransferSyntax   TransferSyntax    `yaml:"transfer_syntax,omitempty"`
	CharacterSet     CharacterSet      `yaml:"character_set,omitempty"`
	Abnormal         Abnormal          `yaml:"abnormal,omitempty"`
	ExtraTags        map[string]string `yaml:"extra_tags,omitempty"`
}

// LoadJob reads and decodes a job file. It does not validate values.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &failure.FileReadError{Path: path, Reason: "File does not exist"}
	}
	if err != nil {
		return nil, &failure.FileReadError{Path: path, Reason: err.Error()}
	}
	return ParseJob(data, path)
}

// ParseJob decodes a job from data. name is used in error messages.
func ParseJob(data []byte, name string) (*Job, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &failure.ConfigurationError{
			Msg:     fmt.Sprintf("Failed to parse job YAML: %s", name),
			Details: map[string]any{"error": err.Error()},
			Err:     err,
		}
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, &failure.ConfigurationError{
			Msg:     "Job YAML root must be a mapping",
			Details: map[string]any{"path": name},
		}
	}

	var job Job
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil && !errors.Is(err, io.EOF) {
		return nil, &failure.ConfigurationError{
			Msg:     fmt.Sprintf("Invalid job YAML: %s", name),
			Details: map[string]any{"error": err.Error()},
			Err:     err,
		}
	}
	return &job, nil
}

var (
	datePattern = regexp.MustCompile(`^\d{8}$`)
	timePattern = regexp.MustCompile(`^\d{6}$`)
	agePattern  = regexp.MustCompile(`^\d{3}Y$`)
)

// Validate checks every field and reports all problems at once.
func (j *Job) Validate() error {
	v := &failure.ValidationError{}

	if j.Name == "" {
		v.Add("job_name is required")
	}
	if j.OutputDir == "" {
		v.Add("output_dir is required")
	}
	validatePatient(v, "patient", j.Patient)

	s := j.Study
	if s.AccessionNumber == "" {
		v.Add("study.accession_number is required")
	} else if len(s.AccessionNumber) > 16 {
		v.Add("study.accession_number must be at most 16 characters")
	}
	if !datePattern.MatchString(s.Date) {
		v.Add("study.study_date must be YYYYMMDD, got %q", s.Date)
	}
	if !timePattern.MatchString(s.Time) {
		v.Add("study.study_time must be HHMMSS, got %q", s.Time)
	}
	if len(s.Description) > 64 {
		v.Add("study.study_description must be at most 64 characters")
	}
	if _, err := util.ParsePriority(s.Priority); err != nil {
		v.Add("study.priority: %v", err)
	}

	switch n := len(j.Series); {
	case n < 1 || n > 100:
		v.Add("series_list must hold between 1 and 100 series, got %d", n)
	case s.NumSeries != 0 && s.NumSeries != n:
		v.Add("study.num_series (%d) does not match series_list length (%d)", s.NumSeries, n)
	}
	for i, se := range j.Series {
		prefix := fmt.Sprintf("series_list[%d]", i)
		if se.Number < 1 {
			v.Add("%s.series_number must be at least 1", prefix)
		}
		if se.NumImages < 1 || se.NumImages > 10000 {
			v.Add("%s.num_images must be between 1 and 10000, got %d", prefix, se.NumImages)
		}
		if se.Thickness != nil && *se.Thickness <= 0 {
			v.Add("%s.slice_thickness must be greater than 0", prefix)
		}
		if se.Spacing != nil && *se.Spacing <= 0 {
			v.Add("%s.slice_spacing must be greater than 0", prefix)
		}
		if len(se.Description) > 64 {
			v.Add("%s.series_description must be at most 64 characters", prefix)
		}
		if len(se.PixelSpacing) != 0 {
			if len(se.PixelSpacing) != 2 || se.PixelSpacing[0] <= 0 || se.PixelSpacing[1] <= 0 {
				v.Add("%s.pixel_spacing must be two values greater than 0", prefix)
			}
		}
	}

	if j.ModalityTemplate == "" {
		v.Add("modality_template is required")
	}
	if method, err := uid.ParseMethod(j.UIDMethod); err != nil {
		v.Add("uid_method %q is not supported (uuid_2_25, custom_root)", j.UIDMethod)
	} else if method == uid.SequentialRooted {
		if _, err := uid.New(method, j.UIDRoot); err != nil {
			v.Add("uid_custom_root: %v", err)
		}
	}

	validatePixelSpec(v, j.PixelSpec)

	switch j.TransferSyntax.UID {
	case "", dicom.ImplicitVRLittleEndian, dicom.ExplicitVRLittleEndian, dicom.ExplicitVRBigEndian:
	default:
		v.Add("transfer_syntax.uid %q is not an uncompressed transfer syntax", j.TransferSyntax.UID)
	}

	a := j.Abnormal
	if _, err := corruption.ParseLevel(a.Level); err != nil {
		v.Add("abnormal.level %q must be one of %v", a.Level, corruption.AllLevels())
	}
	if p := a.InvalidSOPUIDProbability; p != nil && (*p < 0 || *p > 1) {
		v.Add("abnormal.invalid_sop_uid_probability must be between 0 and 1")
	}
	if _, err := corruption.ParseVendors(a.Vendors); err != nil {
		v.Add("abnormal.vendors: %v", err)
	}
	for name := range j.ExtraTags {
		if _, err := util.GetTagByName(name); err != nil {
			v.Add("extra_tags: %v", err)
		}
	}

	return v.OrNil()
}

func validatePatient(v *failure.ValidationError, prefix string, p Patient) {
	if p.ID == "" {
		v.Add("%s.patient_id is required", prefix)
	} else if len(p.ID) > 16 {
		v.Add("%s.patient_id must be at most 16 characters", prefix)
	}
	if p.Name.Alphabetic == "" && p.Name.Ideographic == "" {
		v.Add("%s.patient_name needs an alphabetic or ideographic component", prefix)
	}
	if !datePattern.MatchString(p.BirthDate) {
		v.Add("%s.birth_date must be YYYYMMDD, got %q", prefix, p.BirthDate)
	}
	switch p.Sex {
	case "M", "F", "O":
	default:
		v.Add("%s.sex must be M, F or O, got %q", prefix, p.Sex)
	}
	if p.Age != "" && !agePattern.MatchString(p.Age) {
		v.Add("%s.age must look like 044Y, got %q", prefix, p.Age)
	}
	if p.Weight != nil && (*p.Weight < 0 || *p.Weight > 500) {
		v.Add("%s.weight must be between 0 and 500 kg", prefix)
	}
	if p.Size != nil && (*p.Size < 0 || *p.Size > 3) {
		v.Add("%s.size must be between 0 and 3 m", prefix)
	}
	if len(p.Comments) > 128 {
		v.Add("%s.patient_comments must be at most 128 characters", prefix)
	}
}

func validatePixelSpec(v *failure.ValidationError, ps PixelSpec) {
	if ps.Width < 0 || ps.Height < 0 {
		v.Add("pixel_spec width and height must be greater than 0")
	}
	switch ps.Mode {
	case ModeSimpleText, ModeLabel:
		for _, c := range []*int{ps.BackgroundColor, ps.TextColor} {
			if c != nil && (*c < 0 || *c > 255) {
				v.Add("pixel_spec colors must be between 0 and 255")
				break
			}
		}
		if ps.FontSize < 0 {
			v.Add("pixel_spec.font_size must be greater than 0")
		}
		if (ps.Width > 0 && ps.Width < image.MinLabelSize) || (ps.Height > 0 && ps.Height < image.MinLabelSize) {
			v.Add("pixel_spec width and height must be at least %d in %s mode", image.MinLabelSize, ps.Mode)
		}
	case ModeCTRealistic, ModeRadiographic:
		if ps.BitsStored != 0 && (ps.BitsStored < 8 || ps.BitsStored > 16) {
			v.Add("pixel_spec.bits_stored must be between 8 and 16, got %d", ps.BitsStored)
		}
		switch image.Pattern(ps.Pattern) {
		case "", image.PatternGradient, image.PatternCircle, image.PatternNoise:
		default:
			v.Add("pixel_spec.pattern %q is not supported", ps.Pattern)
		}
	default:
		v.Add("pixel_spec.mode %q must be %s or %s", ps.Mode, ModeSimpleText, ModeCTRealistic)
	}
}

// Content returns the image content described by the pixel spec.
func (ps PixelSpec) Content() (image.Content, error) {
	switch ps.Mode {
	case ModeSimpleText, ModeLabel:
		spec := image.NewLabelSpec()
		if ps.Width > 0 {
			spec.Width = ps.Width
		}
		if ps.Height > 0 {
			spec.Height = ps.Height
		}
		if ps.FontSize > 0 {
			spec.FontSize = ps.FontSize
		}
		if ps.BackgroundColor != nil {
			spec.Background = uint8(*ps.BackgroundColor)
		}
		if ps.TextColor != nil {
			spec.Foreground = uint8(*ps.TextColor)
		}
		return spec, nil
	case ModeCTRealistic, ModeRadiographic:
		spec := image.NewRadiographicSpec()
		if ps.Width > 0 {
			spec.Width = ps.Width
		}
		if ps.Height > 0 {
			spec.Height = ps.Height
		}
		if ps.Pattern != "" {
			spec.Pattern = image.Pattern(ps.Pattern)
		}
		if ps.BitsStored > 0 {
			spec.BitsStored = ps.BitsStored
		}
		return spec, nil
	default:
		return nil, &failure.ConfigurationError{
			Msg:     "Unsupported pixel mode",
			Details: map[string]any{"pixel_mode": ps.Mode},
		}
	}
}

// Request validates the job and maps it onto a generation request.
func (j *Job) Request() (dicom.Request, error) {
	if err := j.Validate(); err != nil {
		return dicom.Request{}, err
	}
	content, err := j.PixelSpec.Content()
	if err != nil {
		return dicom.Request{}, err
	}
	priority, _ := util.ParsePriority(j.Study.Priority)

	series := make([]dicom.SeriesSpec, len(j.Series))
	for i, s := range j.Series {
		spec := dicom.SeriesSpec{
			Number:      s.Number,
			Description: s.Description,
			Protocol:    s.Protocol,
			ImageCount:  s.NumImages,
			Thickness:   DefaultSliceThickness,
			Spacing:     DefaultSliceSpacing,
			StartZ:      s.StartZ,
		}
		if s.Thickness != nil {
			spec.Thickness = *s.Thickness
		}
		if s.Spacing != nil {
			spec.Spacing = *s.Spacing
		}
		if len(s.PixelSpacing) == 2 {
			spec.PixelSpacing = [2]float64{s.PixelSpacing[0], s.PixelSpacing[1]}
		}
		series[i] = spec
	}

	charset := dicom.CharacterSet{UseIdeographic: true, UsePhonetic: true}
	if cs := j.CharacterSet.SpecificCharacterSet; cs != nil {
		value := *cs
		charset.Specific = &value
	} else {
		value := DefaultCharacterSet
		charset.Specific = &value
	}
	if b := j.CharacterSet.UseIdeographic; b != nil {
		charset.UseIdeographic = *b
	}
	if b := j.CharacterSet.UsePhonetic; b != nil {
		charset.UsePhonetic = *b
	}

	transfer := j.TransferSyntax.UID
	if transfer == "" {
		transfer = dicom.ImplicitVRLittleEndian
	}

	probability := 0.1
	if p := j.Abnormal.InvalidSOPUIDProbability; p != nil {
		probability = *p
	}

	study := dicom.StudySpec{
		AccessionNumber:    j.Study.AccessionNumber,
		Date:               j.Study.Date,
		Time:               j.Study.Time,
		Description:        j.Study.Description,
		ReferringPhysician: j.Study.ReferringPhysician,
		Priority:           priority,
	}
	fault := dicom.FaultPolicy{
		Level:                   strings.ToLower(j.Abnormal.Level),
		AllowInvalidInstanceUID: j.Abnormal.AllowInvalidSOPUID,
		Probability:             probability,
		Vendors:                 j.Abnormal.Vendors,
		MalformedLengths:        j.Abnormal.MalformedLengths,
	}
	return dicom.Request{
		JobName:          j.Name,
		Output:           j.OutputDir,
		Subject:          j.Patient.Subject(),
		Study:            study,
		Series:           series,
		ModalityTemplate: j.ModalityTemplate,
		HospitalTemplate: j.HospitalTemplate,
		UIDMethod:        j.UIDMethod,
		UIDRoot:          j.UIDRoot,
		Content:          content,
		TransferSyntax:   transfer,
		CharacterSet:     charset,
		ExtraTags:        j.ExtraTags,
		Fault:            fault,
	}, nil
}

// Subject converts the patient to the engine's subject.
func (p Patient) Subject() dicom.Subject {
	return dicom.Subject{
		ID: p.ID,
		Name: dicom.PersonName{
			Alphabetic:  p.Name.Alphabetic,
			Ideographic: p.Name.Ideographic,
			Phonetic:    p.Name.Phonetic,
		},
		BirthDate: p.BirthDate,
		Sex:       p.Sex,
		Age:       p.Age,
		Weight:    p.Weight,
		Size:      p.Size,
		Comments:  p.Comments,
	}
}
