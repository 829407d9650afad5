// Package util holds small helpers shared by the generator packages: the
// random source, attribute keyword lookup and exam priority.
package util

import (
	"fmt"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagScope is the level of the study hierarchy an attribute belongs to.
type TagScope int

const (
	ScopePatient TagScope = iota
	ScopeStudy
	ScopeSeries
	ScopeImage
)

// String returns the string representation of a TagScope.
func (s TagScope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// TagInfo names a DICOM attribute that callers may set by keyword.
type TagInfo struct {
	Name  string
	Tag   tag.Tag
	Scope TagScope
}

// attributeRegistry maps lowercase keywords to the attributes a job may
// override with extra_tags.
var attributeRegistry = map[string]TagInfo{
	"institutionname":               {Name: "InstitutionName", Tag: tag.InstitutionName, Scope: ScopeStudy},
	"institutionaldepartmentname":   {Name: "InstitutionalDepartmentName", Tag: tag.InstitutionalDepartmentName, Scope: ScopeStudy},
	"performingphysicianname":       {Name: "PerformingPhysicianName", Tag: tag.PerformingPhysicianName, Scope: ScopeStudy},
	"operatorsname":                 {Name: "OperatorsName", Tag: tag.OperatorsName, Scope: ScopeStudy},
	"stationname":                   {Name: "StationName", Tag: tag.StationName, Scope: ScopeStudy},
	"requestedproceduredescription": {Name: "RequestedProcedureDescription", Tag: tag.RequestedProcedureDescription, Scope: ScopeStudy},
	"bodypartexamined":              {Name: "BodyPartExamined", Tag: tag.BodyPartExamined, Scope: ScopeSeries},
	"manufacturer":                  {Name: "Manufacturer", Tag: tag.Manufacturer, Scope: ScopeSeries},
	"manufacturermodelname":         {Name: "ManufacturerModelName", Tag: tag.ManufacturerModelName, Scope: ScopeSeries},
	"softwareversions":              {Name: "SoftwareVersions", Tag: tag.SoftwareVersions, Scope: ScopeSeries},
	"contrastbolusagent":            {Name: "ContrastBolusAgent", Tag: tag.ContrastBolusAgent, Scope: ScopeSeries},
	"kvp":                           {Name: "KVP", Tag: tag.KVP, Scope: ScopeImage},
	"exposuretime":                  {Name: "ExposureTime", Tag: tag.ExposureTime, Scope: ScopeImage},
	"xraytubecurrent":               {Name: "XRayTubeCurrent", Tag: tag.XRayTubeCurrent, Scope: ScopeImage},
	"convolutionkernel":             {Name: "ConvolutionKernel", Tag: tag.ConvolutionKernel, Scope: ScopeImage},
}

// templateSections maps template section keys onto attribute keywords.
var templateSections = map[string]map[string]string{
	"general_equipment": {
		"manufacturer":             "manufacturer",
		"institution_name":         "institutionname",
		"station_name":             "stationname",
		"manufacturers_model_name": "manufacturermodelname",
		"software_versions":        "softwareversions",
	},
	"ct_image": {
		"kvp":                "kvp",
		"exposure_time":      "exposuretime",
		"x_ray_tube_current": "xraytubecurrent",
		"convolution_kernel": "convolutionkernel",
	},
}

// GetTagByName returns TagInfo for a given attribute keyword.
// The lookup is case-insensitive. Unknown keywords produce an error that
// suggests the closest registered keyword.
func GetTagByName(name string) (TagInfo, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if info, ok := attributeRegistry[normalized]; ok {
		return info, nil
	}

	names := make(map[string]string, len(attributeRegistry))
	for key, info := range attributeRegistry {
		names[key] = info.Name
	}
	if suggestion := closest(normalized, names); suggestion != "" {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, suggestion)
	}
	return TagInfo{}, fmt.Errorf("unknown tag %q", name)
}

// TemplateSections returns the template sections that carry attributes, sorted.
func TemplateSections() []string {
	sections := make([]string, 0, len(templateSections))
	for s := range templateSections {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	return sections
}

// LookupTemplateKey resolves a key inside a template section.
func LookupTemplateKey(section, key string) (TagInfo, error) {
	keys, ok := templateSections[section]
	if !ok {
		return TagInfo{}, fmt.Errorf("unknown template section %q", section)
	}
	if keyword, ok := keys[key]; ok {
		return attributeRegistry[keyword], nil
	}

	names := make(map[string]string, len(keys))
	for k := range keys {
		names[k] = k
	}
	if suggestion := closest(key, names); suggestion != "" {
		return TagInfo{}, fmt.Errorf("unknown %s key %q, did you mean %q?", section, key, suggestion)
	}
	return TagInfo{}, fmt.Errorf("unknown %s key %q", section, key)
}

// closest returns the display name whose key is nearest to input, or ""
// when nothing is within a distance of 5.
func closest(input string, candidates map[string]string) string {
	const maxDistance = 5
	bestDistance := maxDistance + 1
	var bestKey string

	for key := range candidates {
		d := levenshteinDistance(input, key)
		if d < bestDistance || (d == bestDistance && key < bestKey) {
			bestDistance = d
			bestKey = key
		}
	}
	if bestDistance <= maxDistance {
		return candidates[bestKey]
	}
	return ""
}

// levenshteinDistance calculates the Levenshtein distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
