// Package template loads modality and hospital templates and merges them
// into the attribute overrides applied to every generated record.
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/studyforge/internal/failure"
)

//go:embed defaults
var defaults embed.FS

// Template is a decoded template: a mapping of section names to values.
type Template map[string]any

// Lookup walks nested mappings along keys. The boolean reports whether the
// final key is present, even when its value is null.
func (t Template) Lookup(keys ...string) (any, bool) {
	var cur any = map[string]any(t)
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Section returns the mapping stored under name, or nil.
func (t Template) Section(name string) map[string]any {
	m, _ := t[name].(map[string]any)
	return m
}

// String returns the value at keys when it is a string.
func (t Template) String(keys ...string) (string, bool) {
	v, ok := t.Lookup(keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the value at keys when it is a boolean.
func (t Template) Bool(keys ...string) (bool, bool) {
	v, ok := t.Lookup(keys...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Merge returns a shallow merge: every key of overrides replaces the key of
// the same name in base. base is not modified.
func Merge(base, overrides Template) Template {
	merged := make(Template, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Loader reads templates from a directory holding modality/<name>.yaml and
// hospital/<name>.yaml.
type Loader struct {
	fsys fs.FS
	root string
}

// NewLoader returns a loader reading from dir. An empty dir selects the
// built-in templates.
func NewLoader(dir string) *Loader {
	if dir == "" {
		sub, err := fs.Sub(defaults, "defaults")
		if err != nil {
			panic(fmt.Sprintf("embedded templates: %v", err))
		}
		return &Loader{fsys: sub, root: "builtin"}
	}
	return &Loader{fsys: os.DirFS(dir), root: dir}
}

// NewLoaderFS returns a loader reading from fsys.
func NewLoaderFS(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys, root: "fs"}
}

// LoadModality loads modality/<name>.yaml.
func (l *Loader) LoadModality(name string) (Template, error) {
	return l.load(path.Join("modality", name+".yaml"), name)
}

// LoadHospital loads hospital/<name>.yaml.
func (l *Loader) LoadHospital(name string) (Template, error) {
	return l.load(path.Join("hospital", name+".yaml"), name)
}

// DefaultModality is the modality template used when none is named.
const DefaultModality = "CT"

// Resolve loads the modality template and, when hospital is set, merges the
// hospital template's overrides section over it.
func (l *Loader) Resolve(modality, hospital string) (Template, error) {
	if modality == "" {
		modality = DefaultModality
	}
	base, err := l.LoadModality(modality)
	if err != nil {
		return nil, err
	}
	if hospital == "" {
		return Merge(base, nil), nil
	}

	h, err := l.LoadHospital(hospital)
	if err != nil {
		return nil, err
	}
	raw, present := h["overrides"]
	if !present || raw == nil {
		return Merge(base, nil), nil
	}
	overrides, ok := raw.(map[string]any)
	if !ok {
		return nil, &failure.TemplateParseError{
			Path:   path.Join(l.root, "hospital", hospital+".yaml"),
			Reason: "'overrides' must be a mapping",
		}
	}
	return Merge(base, overrides), nil
}

func (l *Loader) load(name, templateName string) (Template, error) {
	full := path.Join(l.root, name)
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &failure.TemplateNotFoundError{Name: templateName}
	}
	if err != nil {
		return nil, &failure.TemplateParseError{Path: full, Reason: err.Error()}
	}

	var decoded any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, &failure.TemplateParseError{Path: full, Reason: err.Error()}
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, &failure.TemplateParseError{Path: full, Reason: "template root must be a mapping"}
	}
	return Template(m), nil
}
