// Package modalities describes the imaging modalities a template may name:
// their storage SOP classes and display window presets.
package modalities

import "strings"

// Modality represents a DICOM imaging modality type.
type Modality string

const (
	CT Modality = "CT" // Computed Tomography
	MR Modality = "MR" // Magnetic Resonance
	CR Modality = "CR" // Computed Radiography
	DX Modality = "DX" // Digital X-Ray
	MG Modality = "MG" // Mammography
	XA Modality = "XA" // X-Ray Angiography
)

// WindowPreset represents a window/level preset.
type WindowPreset struct {
	Name   string
	Center float64
	Width  float64
}

// Profile holds what the generator needs to know about a modality.
type Profile struct {
	Modality    Modality
	SOPClassUID string
	Description string
	Windows     []WindowPreset
}

// Storage SOP classes.
const (
	CTImageStorage                  = "1.2.840.10008.5.1.4.1.1.2"
	MRImageStorage                  = "1.2.840.10008.5.1.4.1.1.4"
	ComputedRadiographyImageStorage = "1.2.840.10008.5.1.4.1.1.1"
	DigitalXRayImageStorage         = "1.2.840.10008.5.1.4.1.1.1.1"
	DigitalMammographyImageStorage  = "1.2.840.10008.5.1.4.1.1.1.2"
	XRayAngiographicImageStorage    = "1.2.840.10008.5.1.4.1.1.12.1"
	SecondaryCaptureImageStorage    = "1.2.840.10008.5.1.4.1.1.7"
)

// RadiographicWindows are written on every signed 16-bit image: a soft
// tissue window followed by a bone window.
var RadiographicWindows = []WindowPreset{
	{Name: "SOFT_TISSUE", Center: 40, Width: 400},
	{Name: "BONE", Center: 400, Width: 1500},
}

var profiles = map[Modality]Profile{
	CT: {Modality: CT, SOPClassUID: CTImageStorage, Description: "Computed Tomography", Windows: RadiographicWindows},
	MR: {Modality: MR, SOPClassUID: MRImageStorage, Description: "Magnetic Resonance", Windows: []WindowPreset{
		{Name: "DEFAULT", Center: 600, Width: 1200},
	}},
	CR: {Modality: CR, SOPClassUID: ComputedRadiographyImageStorage, Description: "Computed Radiography"},
	DX: {Modality: DX, SOPClassUID: DigitalXRayImageStorage, Description: "Digital X-Ray"},
	MG: {Modality: MG, SOPClassUID: DigitalMammographyImageStorage, Description: "Mammography"},
	XA: {Modality: XA, SOPClassUID: XRayAngiographicImageStorage, Description: "X-Ray Angiography"},
}

// AllModalities returns all modalities with a known profile.
func AllModalities() []Modality {
	return []Modality{CT, MR, CR, DX, MG, XA}
}

// IsValid checks if a modality string names a known profile.
func IsValid(m string) bool {
	_, ok := profiles[Modality(strings.ToUpper(m))]
	return ok
}

// Lookup returns the profile of m. Unknown modalities get a secondary
// capture profile carrying their own code.
func Lookup(m string) Profile {
	mod := Modality(strings.ToUpper(strings.TrimSpace(m)))
	if p, ok := profiles[mod]; ok {
		return p
	}
	return Profile{Modality: mod, SOPClassUID: SecondaryCaptureImageStorage, Description: "Secondary Capture"}
}
