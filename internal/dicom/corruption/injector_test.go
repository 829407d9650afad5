package corruption

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mrsinham/studyforge/internal/failure"
)

// stubSource returns a fixed Float64 and the smallest IntN.
type stubSource struct{ f float64 }

func (s stubSource) Float64() float64 { return s.f }
func (s stubSource) IntN(int) int     { return 0 }

var (
	patientName  = Field{Name: "PatientName", Presence: Conditional, Class: Text}
	accession    = Field{Name: "AccessionNumber", Presence: Conditional, Class: Text, MaxLength: 16}
	studyDate    = Field{Name: "StudyDate", Presence: Conditional, Class: Date}
	studyTime    = Field{Name: "StudyTime", Presence: Conditional, Class: Time}
	seriesNumber = Field{Name: "SeriesNumber", Presence: Conditional, Class: IntegerString}
	thickness    = Field{Name: "SliceThickness", Presence: Optional, Class: DecimalString}
	modality     = Field{Name: "Modality", Presence: Mandatory, Class: CodeString}
	studyUID     = Field{Name: "StudyInstanceUID", Presence: Mandatory, Class: Identifier}
	creatorUID   = Field{Name: "InstanceCreatorUID", Presence: Optional, Class: Identifier}
	comments     = Field{Name: "PatientComments", Presence: Optional, Class: Other}
)

func TestParseLevel(t *testing.T) {
	for _, l := range AllLevels() {
		got, err := ParseLevel(strings.ToUpper(string(l)))
		if err != nil {
			t.Errorf("ParseLevel(%q) returned error: %v", l, err)
		}
		if got != l {
			t.Errorf("ParseLevel(%q) = %q", l, got)
		}
	}
	if got, err := ParseLevel(""); err != nil || got != LevelNone {
		t.Errorf("ParseLevel(\"\") = %q, %v; want none", got, err)
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	_, err := ParseLevel("catastrophic")
	var genErr *failure.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "catastrophic") {
		t.Errorf("error %q should name the level", err.Error())
	}
}

func TestApply_None(t *testing.T) {
	in := NewInjector(LevelNone, nil)
	for _, f := range []Field{patientName, studyDate, modality, studyUID, comments} {
		got, present := in.Apply(f, "value")
		if !present {
			t.Errorf("%s: none must never omit", f.Name)
		}
		if diff := cmp.Diff([]string{"value"}, got); diff != "" {
			t.Errorf("%s: none must pass through (-want +got):\n%s", f.Name, diff)
		}
	}
}

func TestApply_Mild(t *testing.T) {
	in := NewInjector(LevelMild, rand.New(rand.NewPCG(42, 42)))

	tests := []struct {
		field Field
		input string
		want  string
	}{
		{studyDate, "20240115", "INVALID_DATE"},
		{studyTime, "101500", "INVALID_TIME"},
		{seriesNumber, "1", "NOT_A_NUMBER"},
		{thickness, "5", "NOT_DECIMAL"},
		{modality, "CT", "invalid_cs!"},
		{studyUID, "1.2.3", "1." + strings.Repeat("2", 65)},
	}
	for _, tc := range tests {
		t.Run(tc.field.Name, func(t *testing.T) {
			got, present := in.Apply(tc.field, tc.input)
			if !present {
				t.Fatal("mild must never omit")
			}
			if got[0] != tc.want {
				t.Errorf("Apply() = %q, want %q", got[0], tc.want)
			}
		})
	}
}

func TestApply_MildText(t *testing.T) {
	in := NewInjector(LevelMild, rand.New(rand.NewPCG(1, 2)))

	got, _ := in.Apply(accession, "ACC001")
	if len(got[0]) != 32 {
		t.Errorf("bounded text length = %d, want 32", len(got[0]))
	}
	got, _ = in.Apply(Field{Name: "StudyID", Class: Text, MaxLength: 1}, "1")
	if len(got[0]) != 2 {
		t.Errorf("bounded text with max 1 length = %d, want 2", len(got[0]))
	}

	alnum := regexp.MustCompile(`^[A-Za-z0-9]{8}$`)
	for _, f := range []Field{patientName, comments} {
		got, _ := in.Apply(f, "YAMADA^TARO")
		if !strings.HasPrefix(got[0], "YAMADA^TARO") {
			t.Errorf("%s: %q should keep the original value", f.Name, got[0])
		}
		if suffix := strings.TrimPrefix(got[0], "YAMADA^TARO"); !alnum.MatchString(suffix) {
			t.Errorf("%s: suffix %q should be 8 alphanumerics", f.Name, suffix)
		}
	}
}

func TestApply_MildMultiValued(t *testing.T) {
	in := NewInjector(LevelMild, nil)
	got, present := in.Apply(Field{Name: "ImagePositionPatient", Presence: Mandatory, Class: DecimalString}, "0", "0", "5")
	if !present {
		t.Fatal("mild must never omit")
	}
	if diff := cmp.Diff([]string{"NOT_DECIMAL", "NOT_DECIMAL", "NOT_DECIMAL"}, got); diff != "" {
		t.Errorf("multi-valued mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_Moderate(t *testing.T) {
	keep := NewInjector(LevelModerate, stubSource{f: 0.9})
	drop := NewInjector(LevelModerate, stubSource{f: 0.1})

	if _, present := keep.Apply(modality, "CT"); present {
		t.Error("moderate must omit mandatory fields")
	}
	if _, present := drop.Apply(studyDate, "20240115"); present {
		t.Error("moderate should omit conditional field when the draw is below 0.5")
	}
	got, present := keep.Apply(studyDate, "20240115")
	if !present || got[0] != InvalidDate {
		t.Errorf("moderate kept conditional field = %v, %v; want mild corruption", got, present)
	}

	got, present = keep.Apply(creatorUID, "1.2.3")
	if !present {
		t.Fatal("moderate must keep optional identifiers")
	}
	if !regexp.MustCompile(`^2\.25\.0\d{19}$`).MatchString(got[0]) {
		t.Errorf("moderate identifier = %q, want leading-zero component", got[0])
	}
}

func TestApply_ModerateConditionalRate(t *testing.T) {
	in := NewInjector(LevelModerate, rand.New(rand.NewPCG(42, 42)))
	omitted := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if _, present := in.Apply(studyDate, "20240115"); !present {
			omitted++
		}
	}
	if omitted < n*4/10 || omitted > n*6/10 {
		t.Errorf("omitted %d/%d conditional fields, want about half", omitted, n)
	}
}

func TestApply_Severe(t *testing.T) {
	keep := NewInjector(LevelSevere, stubSource{f: 0.9})
	drop := NewInjector(LevelSevere, stubSource{f: 0.1})

	for _, f := range []Field{modality, studyUID, studyDate, patientName} {
		if _, present := keep.Apply(f, "x"); present {
			t.Errorf("severe must omit %s (%s)", f.Name, f.Presence)
		}
	}
	if _, present := drop.Apply(comments, "x"); present {
		t.Error("severe should omit optional field when the draw is below 0.3")
	}

	tests := []struct {
		field Field
		want  string
	}{
		{thickness, "INVALID_TYPE"},
		{Field{Name: "AcquisitionNumber", Presence: Optional, Class: IntegerString}, "INVALID_TYPE"},
		{comments, "12345"},
		{Field{Name: "StudyDescription", Presence: Optional, Class: Text, MaxLength: 64}, "12345"},
		{Field{Name: "ContentDate", Presence: Optional, Class: Date}, "12345"},
	}
	for _, tc := range tests {
		got, present := keep.Apply(tc.field, "value")
		if !present {
			t.Errorf("%s should be kept when the draw is above 0.3", tc.field.Name)
			continue
		}
		if got[0] != tc.want {
			t.Errorf("%s = %q, want %q", tc.field.Name, got[0], tc.want)
		}
	}

	got, _ := keep.Apply(creatorUID, "1.2.3")
	if !regexp.MustCompile(`^INVALID_UID_[A-Z0-9]{4}$`).MatchString(got[0]) {
		t.Errorf("severe identifier = %q", got[0])
	}
}

func TestApply_SevereOptionalRate(t *testing.T) {
	in := NewInjector(LevelSevere, rand.New(rand.NewPCG(7, 7)))
	omitted := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if _, present := in.Apply(comments, "x"); !present {
			omitted++
		}
	}
	if omitted < n*2/10 || omitted > n*4/10 {
		t.Errorf("omitted %d/%d optional fields, want about 30%%", omitted, n)
	}
}

func TestApply_EmptyValue(t *testing.T) {
	in := NewInjector(LevelMild, nil)
	got, present := in.Apply(Field{Name: "StudyID", Presence: Conditional, Class: Text, MaxLength: 16})
	if !present || len(got) != 1 || len(got[0]) != 32 {
		t.Errorf("Apply without values = %v, %v", got, present)
	}
}

func TestClassAndPresenceNames(t *testing.T) {
	if Identifier.String() != "identifier" || !DecimalString.Numeric() || CodeString.Numeric() {
		t.Error("unexpected class helpers")
	}
	if Conditional.String() != "conditional" {
		t.Errorf("Conditional.String() = %q", Conditional.String())
	}
}
