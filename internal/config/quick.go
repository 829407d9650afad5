package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mrsinham/studyforge/internal/failure"
)

// QuickOptions are the inputs of a job built without a job file.
type QuickOptions struct {
	PatientID       string
	Modality        string
	Hospital        string
	SeriesCount     int
	Images          string // comma-separated image counts, one per series
	AccessionNumber string
	StudyDate       string
	PixelMode       string
	OutputDir       string
	Now             time.Time
}

// ParseImages parses a comma-separated list of positive image counts.
func ParseImages(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	counts := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, &failure.ConfigurationError{
				Msg:     fmt.Sprintf("Invalid image count %q in %q", p, s),
				Details: map[string]any{"images": s},
				Err:     err,
			}
		}
		if n < 1 {
			return nil, &failure.ConfigurationError{
				Msg:     fmt.Sprintf("Image count must be at least 1, got %d", n),
				Details: map[string]any{"images": s},
			}
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// QuickJob builds a job from the master patient and quick options.
func QuickJob(patient Patient, opts QuickOptions) (*Job, error) {
	counts, err := ParseImages(opts.Images)
	if err != nil {
		return nil, err
	}
	if opts.SeriesCount != len(counts) {
		return nil, &failure.ConfigurationError{
			Msg: fmt.Sprintf("Series count (%d) does not match the number of image counts (%d)", opts.SeriesCount, len(counts)),
		}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	date := opts.StudyDate
	if date == "" {
		date = now.Format("20060102")
	}
	accession := opts.AccessionNumber
	if accession == "" {
		accession = "ACC000001"
	}
	mode := opts.PixelMode
	if mode == "" {
		mode = ModeCTRealistic
	}
	output := opts.OutputDir
	if output == "" {
		output = filepath.Join("output", patient.ID)
	}

	series := make([]Series, len(counts))
	for i, n := range counts {
		series[i] = Series{
			Number:      i + 1,
			Description: fmt.Sprintf("Series %d", i+1),
			NumImages:   n,
		}
	}

	study := Study{
		AccessionNumber: accession,
		Date:            date,
		Time:            now.Format("150405"),
		Description:     fmt.Sprintf("%s study", opts.Modality),
		NumSeries:       len(counts),
	}
	return &Job{
		Name:             fmt.Sprintf("quick_%s_%s", patient.ID, date),
		OutputDir:        output,
		Patient:          patient,
		Study:            study,
		Series:           series,
		ModalityTemplate: opts.Modality,
		HospitalTemplate: opts.Hospital,
		PixelSpec:        PixelSpec{Mode: mode},
	}, nil
}
