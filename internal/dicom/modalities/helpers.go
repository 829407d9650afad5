package modalities

import (
	"fmt"
	"strconv"
)

// FormatDS converts a float64 to a DICOM Decimal String.
func FormatDS(f float64) string {
	return fmt.Sprintf("%.6g", f)
}

// FormatIS converts an int to a DICOM Integer String.
func FormatIS(i int) string {
	return strconv.Itoa(i)
}

// WindowValues returns the centers and widths of presets as Decimal Strings.
func WindowValues(presets []WindowPreset) (centers, widths []string) {
	for _, p := range presets {
		centers = append(centers, FormatDS(p.Center))
		widths = append(widths, FormatDS(p.Width))
	}
	return centers, widths
}
