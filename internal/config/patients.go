package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/studyforge/internal/failure"
)

// PatientMaster is a reusable list of patients, keyed by patient ID.
type PatientMaster struct {
	Patients []Patient `yaml:"patients"`
}

// LoadPatients reads a patient master file.
func LoadPatients(path string) (*PatientMaster, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &failure.FileReadError{Path: path, Reason: "File does not exist"}
	}
	if err != nil {
		return nil, &failure.FileReadError{Path: path, Reason: err.Error()}
	}

	var master PatientMaster
	if err := yaml.Unmarshal(data, &master); err != nil {
		return nil, &failure.ConfigurationError{
			Msg:     fmt.Sprintf("Failed to parse patient master: %s", path),
			Details: map[string]any{"error": err.Error()},
			Err:     err,
		}
	}
	return &master, nil
}

// Find returns the patient with the given ID.
func (m *PatientMaster) Find(id string) (Patient, error) {
	for _, p := range m.Patients {
		if p.ID == id {
			return p, nil
		}
	}
	return Patient{}, &failure.PatientNotFoundError{ID: id}
}

// Validate checks every patient of the master.
func (m *PatientMaster) Validate() error {
	v := &failure.ValidationError{}
	seen := make(map[string]bool, len(m.Patients))
	for i, p := range m.Patients {
		validatePatient(v, fmt.Sprintf("patients[%d]", i), p)
		if p.ID != "" && seen[p.ID] {
			v.Add("patients[%d].patient_id %q is duplicated", i, p.ID)
		}
		seen[p.ID] = true
	}
	return v.OrNil()
}
