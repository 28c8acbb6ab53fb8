package methodology

import (
	"fmt"
	"strings"

	"mucm/internal/domain"
)

// FieldType enumerates the value shapes a custom field may declare.
var fieldTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"array":   true,
	"text":    true,
}

// FieldDef describes one custom field declared by a documentation level.
type FieldDef struct {
	Label       string `yaml:"label,omitempty" json:"label,omitempty"`
	Type        string `yaml:"type" json:"type"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Example     string `yaml:"example,omitempty" json:"example,omitempty"`
}

// Level is one documentation depth within a methodology. Fields are
// inherited from the levels named in Inherits, parents first.
type Level struct {
	Name         string              `yaml:"name" json:"name"`
	Abbreviation string              `yaml:"abbreviation" json:"abbreviation"`
	Filename     string              `yaml:"filename,omitempty" json:"filename,omitempty"`
	Description  string              `yaml:"description,omitempty" json:"description,omitempty"`
	Inherits     []string            `yaml:"inherits,omitempty" json:"inherits,omitempty"`
	CustomFields map[string]FieldDef `yaml:"custom_fields,omitempty" json:"custom_fields,omitempty"`
}

// Definition is one declarative methodology description.
type Definition struct {
	Name           string   `yaml:"name" json:"name"`
	Title          string   `yaml:"title" json:"title"`
	Description    string   `yaml:"description,omitempty" json:"description,omitempty"`
	WhenToUse      string   `yaml:"when_to_use,omitempty" json:"when_to_use,omitempty"`
	KeyFeatures    []string `yaml:"key_features,omitempty" json:"key_features,omitempty"`
	PreferredStyle string   `yaml:"preferred_style,omitempty" json:"preferred_style,omitempty"`
	Levels         []Level  `yaml:"levels" json:"levels"`
}

// Level returns the named level, or nil.
func (d *Definition) Level(name string) *Level {
	for i := range d.Levels {
		if d.Levels[i].Name == name {
			return &d.Levels[i]
		}
	}
	return nil
}

// LevelNames returns level names in declaration order.
func (d *Definition) LevelNames() []string {
	names := make([]string, len(d.Levels))
	for i, l := range d.Levels {
		names[i] = l.Name
	}
	return names
}

// Validate checks structural invariants: non-empty names, known field
// types, inherits resolving to declared levels, and acyclic inheritance.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: methodology name is required", domain.ErrValidation)
	}
	if len(d.Levels) == 0 {
		return fmt.Errorf("%w: methodology %s declares no levels", domain.ErrValidation, d.Name)
	}
	seen := map[string]bool{}
	for i := range d.Levels {
		l := &d.Levels[i]
		if l.Name == "" {
			return fmt.Errorf("%w: methodology %s has an unnamed level", domain.ErrValidation, d.Name)
		}
		if seen[l.Name] {
			return fmt.Errorf("%w: methodology %s declares level %s twice", domain.ErrValidation, d.Name, l.Name)
		}
		seen[l.Name] = true
		if l.Abbreviation == "" {
			l.Abbreviation = strings.ToLower(l.Name[:1])
		}
		if l.Filename == "" {
			l.Filename = l.Name + ".tmpl"
		}
		for fname, f := range l.CustomFields {
			if !fieldTypes[f.Type] {
				return fmt.Errorf("%w: methodology %s level %s field %s has unknown type %q",
					domain.ErrValidation, d.Name, l.Name, fname, f.Type)
			}
		}
	}
	for _, l := range d.Levels {
		for _, parent := range l.Inherits {
			if !seen[parent] {
				return fmt.Errorf("%w: methodology %s level %s inherits unknown level %s",
					domain.ErrValidation, d.Name, l.Name, parent)
			}
		}
	}
	for _, l := range d.Levels {
		if err := d.checkCycle(l.Name, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Definition) checkCycle(name string, visiting map[string]bool) error {
	if visiting[name] {
		return fmt.Errorf("%w: methodology %s has an inheritance cycle through level %s",
			domain.ErrValidation, d.Name, name)
	}
	visiting[name] = true
	l := d.Level(name)
	if l != nil {
		for _, parent := range l.Inherits {
			if err := d.checkCycle(parent, visiting); err != nil {
				return err
			}
		}
	}
	delete(visiting, name)
	return nil
}
