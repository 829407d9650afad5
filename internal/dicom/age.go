package dicom

import (
	"fmt"
	"time"

	"github.com/mrsinham/studyforge/internal/failure"
)

const dateLayout = "20060102"

// parseDate parses a YYYYMMDD date, rejecting dates time.Parse would
// otherwise normalize.
func parseDate(s string) (time.Time, error) {
	if len(s) != len(dateLayout) {
		return time.Time{}, fmt.Errorf("invalid date format: %q", s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %q", s)
	}
	return t, nil
}

// CivilAge returns the age in years, formatted NNNY, of someone born on
// birth at the date study. An age is attained on the day before the
// anniversary; a Feb 29 birth attains it on Feb 28 in non-leap years.
func CivilAge(birth, study string) (string, error) {
	b, err := parseDate(birth)
	if err != nil {
		return "", &failure.BuildError{Msg: "Failed to calculate age: " + err.Error(), Tag: "PatientBirthDate", Err: err}
	}
	s, err := parseDate(study)
	if err != nil {
		return "", &failure.BuildError{Msg: "Failed to calculate age: " + err.Error(), Tag: "StudyDate", Err: err}
	}
	if s.Before(b) {
		return "", &failure.BuildError{
			Msg: fmt.Sprintf("study date %s is before birth date %s", study, birth),
			Tag: "PatientAge",
		}
	}

	eve := b.AddDate(0, 0, -1)
	em, ed := eve.Month(), eve.Day()
	if em == time.February && ed == 29 && !isLeap(s.Year()) {
		ed = 28
	}

	years := s.Year() - eve.Year()
	if s.Month() < em || (s.Month() == em && s.Day() < ed) {
		years--
	}
	return fmt.Sprintf("%03dY", years), nil
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
