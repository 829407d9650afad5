package util

import (
	"strings"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestGetTagByName_Valid(t *testing.T) {
	tests := []struct {
		name          string
		expectedTag   tag.Tag
		expectedScope TagScope
	}{
		{"InstitutionName", tag.InstitutionName, ScopeStudy},
		{"OperatorsName", tag.OperatorsName, ScopeStudy},
		{"BodyPartExamined", tag.BodyPartExamined, ScopeSeries},
		{"SoftwareVersions", tag.SoftwareVersions, ScopeSeries},
		{"KVP", tag.KVP, ScopeImage},
		{"ConvolutionKernel", tag.ConvolutionKernel, ScopeImage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info, err := GetTagByName(tc.name)
			if err != nil {
				t.Fatalf("GetTagByName(%q) returned error: %v", tc.name, err)
			}
			if info.Tag != tc.expectedTag {
				t.Errorf("GetTagByName(%q).Tag = %v, want %v", tc.name, info.Tag, tc.expectedTag)
			}
			if info.Scope != tc.expectedScope {
				t.Errorf("GetTagByName(%q).Scope = %v, want %v", tc.name, info.Scope, tc.expectedScope)
			}
			if info.Name != tc.name {
				t.Errorf("GetTagByName(%q).Name = %q, want %q", tc.name, info.Name, tc.name)
			}
		})
	}
}

func TestGetTagByName_Suggestion(t *testing.T) {
	tests := []struct {
		typo       string
		suggestion string
	}{
		{"InstitutionNme", "InstitutionName"},
		{"Manufacurer", "Manufacturer"},
		{"ConvolutionKernal", "ConvolutionKernel"},
	}

	for _, tc := range tests {
		t.Run(tc.typo, func(t *testing.T) {
			_, err := GetTagByName(tc.typo)
			if err == nil {
				t.Fatalf("GetTagByName(%q) should return error", tc.typo)
			}
			if !strings.Contains(err.Error(), tc.suggestion) {
				t.Errorf("Error for %q should suggest %q, got: %v", tc.typo, tc.suggestion, err)
			}
		})
	}
}

func TestGetTagByName_Invalid(t *testing.T) {
	for _, name := range []string{"", "   ", "CompletelyUnrelatedKeywordXYZ"} {
		if _, err := GetTagByName(name); err == nil {
			t.Errorf("GetTagByName(%q) should return error", name)
		}
	}
}

func TestLookupTemplateKey(t *testing.T) {
	tests := []struct {
		section string
		key     string
		want    tag.Tag
	}{
		{"general_equipment", "manufacturer", tag.Manufacturer},
		{"general_equipment", "institution_name", tag.InstitutionName},
		{"general_equipment", "station_name", tag.StationName},
		{"general_equipment", "manufacturers_model_name", tag.ManufacturerModelName},
		{"general_equipment", "software_versions", tag.SoftwareVersions},
		{"ct_image", "kvp", tag.KVP},
		{"ct_image", "exposure_time", tag.ExposureTime},
		{"ct_image", "x_ray_tube_current", tag.XRayTubeCurrent},
		{"ct_image", "convolution_kernel", tag.ConvolutionKernel},
	}

	for _, tc := range tests {
		t.Run(tc.section+"/"+tc.key, func(t *testing.T) {
			info, err := LookupTemplateKey(tc.section, tc.key)
			if err != nil {
				t.Fatalf("LookupTemplateKey returned error: %v", err)
			}
			if info.Tag != tc.want {
				t.Errorf("Tag = %v, want %v", info.Tag, tc.want)
			}
		})
	}
}

func TestLookupTemplateKey_Unknown(t *testing.T) {
	_, err := LookupTemplateKey("ct_image", "kvpp")
	if err == nil || !strings.Contains(err.Error(), `"kvp"`) {
		t.Errorf("expected suggestion for kvpp, got %v", err)
	}
	if _, err := LookupTemplateKey("mr_image", "echo_time"); err == nil {
		t.Error("unknown section should return error")
	}
}

func TestTemplateSections(t *testing.T) {
	got := TemplateSections()
	if len(got) != 2 || got[0] != "ct_image" || got[1] != "general_equipment" {
		t.Errorf("TemplateSections() = %v", got)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"PatientName", "PatinetName", 2},
	}

	for _, tc := range tests {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			if got := levenshteinDistance(tc.a, tc.b); got != tc.expected {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}
