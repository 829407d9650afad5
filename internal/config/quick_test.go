package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mrsinham/studyforge/internal/failure"
)

func TestParseImages(t *testing.T) {
	tests := []struct {
		in   string
		want []int
		ok   bool
	}{
		{"1,20,20", []int{1, 20, 20}, true},
		{" 5 , 6 ", []int{5, 6}, true},
		{"10", []int{10}, true},
		{"", nil, false},
		{"1,,2", nil, false},
		{"1,x", nil, false},
		{"0", nil, false},
		{"-3", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseImages(tc.in)
			if !tc.ok {
				if failure.KindOf(err) != failure.KindConfiguration {
					t.Errorf("ParseImages(%q) error = %v, want configuration error", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseImages(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func quickPatient() Patient {
	return Patient{
		ID:        "PAT001",
		Name:      PersonName{Alphabetic: "Doe^John"},
		BirthDate: "19700101",
		Sex:       "M",
	}
}

func TestQuickJob(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC)
	job, err := QuickJob(quickPatient(), QuickOptions{
		Modality:    "CT",
		SeriesCount: 3,
		Images:      "1,20,20",
		Now:         now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := job.Validate(); err != nil {
		t.Fatalf("quick job should validate: %v", err)
	}
	if job.Study.Date != "20240301" || job.Study.Time != "093015" {
		t.Errorf("study date/time = %s %s", job.Study.Date, job.Study.Time)
	}
	if job.Study.AccessionNumber != "ACC000001" {
		t.Errorf("AccessionNumber = %q", job.Study.AccessionNumber)
	}
	if job.PixelSpec.Mode != ModeCTRealistic {
		t.Errorf("Mode = %q", job.PixelSpec.Mode)
	}
	req, err := job.Request()
	if err != nil {
		t.Fatal(err)
	}
	if req.TotalImages() != 41 {
		t.Errorf("TotalImages = %d, want 41", req.TotalImages())
	}
}

func TestQuickJob_SeriesCountMismatch(t *testing.T) {
	_, err := QuickJob(quickPatient(), QuickOptions{Modality: "CT", SeriesCount: 2, Images: "1,2,3"})
	if failure.KindOf(err) != failure.KindConfiguration {
		t.Errorf("QuickJob() = %v, want configuration error", err)
	}
}
