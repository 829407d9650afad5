// Package failure defines the error taxonomy shared by the generator, its
// loaders and the command line.
package failure

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind groups errors by how the command line should report them.
type Kind int

const (
	KindNone Kind = iota
	KindGeneration
	KindConfiguration
	KindIO
	KindValidation
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindGeneration:
		return "generation"
	case KindConfiguration:
		return "configuration"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit status for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindNone:
		return 0
	case KindConfiguration:
		return 2
	case KindIO:
		return 3
	case KindValidation:
		return 4
	default:
		return 1
	}
}

// kinded is implemented by every error in this package.
type kinded interface {
	error
	Kind() Kind
}

// KindOf reports the kind of the first taxonomy error found in err's chain.
// Errors outside the taxonomy are generation errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindGeneration
}

// Is reports whether err's chain holds an error from this package.
func Is(err error) bool {
	var k kinded
	return errors.As(err, &k)
}

func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// ConfigurationError reports an invalid or incomplete input configuration.
type ConfigurationError struct {
	Msg     string
	Details map[string]any
	Err     error
}

func (e *ConfigurationError) Error() string { return e.Msg + formatDetails(e.Details) }
func (e *ConfigurationError) Unwrap() error { return e.Err }
func (e *ConfigurationError) Kind() Kind    { return KindConfiguration }

// TemplateNotFoundError is returned when a named template file does not exist.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string { return fmt.Sprintf("template not found: %s", e.Name) }
func (e *TemplateNotFoundError) Kind() Kind    { return KindConfiguration }

// TemplateParseError is returned when a template cannot be decoded.
type TemplateParseError struct {
	Path   string
	Reason string
}

func (e *TemplateParseError) Error() string {
	return fmt.Sprintf("failed to parse template %s: %s", e.Path, e.Reason)
}
func (e *TemplateParseError) Kind() Kind { return KindConfiguration }

// PatientNotFoundError is returned when the patient master has no such ID.
type PatientNotFoundError struct {
	ID string
}

func (e *PatientNotFoundError) Error() string { return fmt.Sprintf("patient not found: %s", e.ID) }
func (e *PatientNotFoundError) Kind() Kind    { return KindConfiguration }

// GenerationError reports a failure while producing a study.
type GenerationError struct {
	Msg     string
	Details map[string]any
	Err     error
}

func (e *GenerationError) Error() string {
	msg := e.Msg + formatDetails(e.Details)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}
func (e *GenerationError) Unwrap() error { return e.Err }
func (e *GenerationError) Kind() Kind    { return KindGeneration }

// PixelGenerationError reports a failure to synthesize image content.
type PixelGenerationError struct {
	Msg  string
	Mode string
}

func (e *PixelGenerationError) Error() string {
	if e.Mode == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (mode=%s)", e.Msg, e.Mode)
}
func (e *PixelGenerationError) Kind() Kind { return KindGeneration }

// BuildError reports an inconsistency found while assembling a record.
// Tag names the offending attribute keyword when one is known.
type BuildError struct {
	Msg string
	Tag string
	Err error
}

func (e *BuildError) Error() string {
	if e.Tag == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (tag=%s)", e.Msg, e.Tag)
}
func (e *BuildError) Unwrap() error { return e.Err }
func (e *BuildError) Kind() Kind    { return KindGeneration }

// FileWriteError reports a failure to persist an output file.
type FileWriteError struct {
	Path   string
	Reason string
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write file %s: %s", e.Path, e.Reason)
}
func (e *FileWriteError) Kind() Kind { return KindIO }

// FileReadError reports a failure to read an input file.
type FileReadError struct {
	Path   string
	Reason string
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file %s: %s", e.Path, e.Reason)
}
func (e *FileReadError) Kind() Kind { return KindIO }

// DirectoryCreateError reports a failure to prepare the output destination.
type DirectoryCreateError struct {
	Path   string
	Reason string
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("failed to create directory %s: %s", e.Path, e.Reason)
}
func (e *DirectoryCreateError) Kind() Kind { return KindIO }

// ValidationError collects every problem found in a job description.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Issues, "; ")
}
func (e *ValidationError) Kind() Kind { return KindValidation }

// Add records an issue built from format and args.
func (e *ValidationError) Add(format string, args ...any) {
	e.Issues = append(e.Issues, fmt.Sprintf(format, args...))
}

// OrNil returns e when it holds issues and nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
