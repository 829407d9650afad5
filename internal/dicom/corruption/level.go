// Package corruption degrades generated records on purpose: field-level
// value faults and omissions graded by Level, vendor private blocks, and
// byte-level length defects.
package corruption

import (
	"fmt"
	"strings"

	"github.com/mrsinham/studyforge/internal/failure"
)

// Level is the fault severity selected once per generation run.
type Level string

const (
	LevelNone     Level = "none"
	LevelMild     Level = "mild"
	LevelModerate Level = "moderate"
	LevelSevere   Level = "severe"
)

// AllLevels returns every level in increasing severity.
func AllLevels() []Level {
	return []Level{LevelNone, LevelMild, LevelModerate, LevelSevere}
}

// ParseLevel parses a level name. The empty string is LevelNone.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelNone, nil
	case LevelNone, LevelMild, LevelModerate, LevelSevere:
		return l, nil
	default:
		return LevelNone, &failure.GenerationError{
			Msg:     fmt.Sprintf("Invalid level: %s", s),
			Details: map[string]any{"valid": AllLevels()},
		}
	}
}

// Vendor selects a family of private attributes to embed in each record.
type Vendor string

const (
	VendorSiemens Vendor = "siemens"
	VendorGE      Vendor = "ge"
	VendorPhilips Vendor = "philips"
)

// AllVendors returns all supported vendors.
func AllVendors() []Vendor {
	return []Vendor{VendorSiemens, VendorGE, VendorPhilips}
}

// ParseVendors parses vendor names, dropping duplicates. The special value
// "all" selects every vendor.
func ParseVendors(names []string) ([]Vendor, error) {
	valid := make(map[Vendor]bool)
	for _, v := range AllVendors() {
		valid[v] = true
	}

	result := make([]Vendor, 0, len(names))
	seen := make(map[Vendor]bool)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "all" {
			return AllVendors(), nil
		}
		v := Vendor(n)
		if !valid[v] {
			return nil, fmt.Errorf("unknown vendor %q, valid vendors: %v (or 'all')", n, AllVendors())
		}
		if !seen[v] {
			result = append(result, v)
			seen[v] = true
		}
	}
	return result, nil
}
