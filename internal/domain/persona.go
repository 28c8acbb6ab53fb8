package domain

import (
	"regexp"
	"strings"
	"time"
)

// PersonaType classifies a reusable participant record.
type PersonaType string

const (
	PersonaTypePersona         PersonaType = "persona"
	PersonaTypeSystem          PersonaType = "system"
	PersonaTypeExternalService PersonaType = "external_service"
	PersonaTypeDatabase        PersonaType = "database"
	PersonaTypeCustom          PersonaType = "custom"
)

// ParsePersonaType accepts the canonical names case-insensitively;
// anything else is treated as custom.
func ParsePersonaType(s string) PersonaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "persona", "user", "":
		return PersonaTypePersona
	case "system":
		return PersonaTypeSystem
	case "external_service", "external-service", "service":
		return PersonaTypeExternalService
	case "database", "db":
		return PersonaTypeDatabase
	default:
		return PersonaTypeCustom
	}
}

func (t PersonaType) Valid() bool {
	switch t {
	case PersonaTypePersona, PersonaTypeSystem, PersonaTypeExternalService,
		PersonaTypeDatabase, PersonaTypeCustom:
		return true
	}
	return false
}

// personaIDRe: lowercase alphanumerics joined by single hyphens or
// underscores, no leading or trailing separator.
var personaIDRe = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// ValidPersonaID reports whether id is a well-formed persona identifier.
func ValidPersonaID(id string) bool { return personaIDRe.MatchString(id) }

// Persona is a reusable participant referenced by scenarios, distinct
// from the inline Actor tag used on steps. Goal states what the
// persona wants from the system; Context, TechLevel (1..5) and
// UsageFrequency are optional color.
type Persona struct {
	ID             string      `toml:"id" json:"id"`
	Name           string      `toml:"name" json:"name"`
	Type           PersonaType `toml:"type" json:"type"`
	Description    string      `toml:"description,omitempty" json:"description,omitempty"`
	Goal           string      `toml:"goal" json:"goal"`
	Context        string      `toml:"context,omitempty" json:"context,omitempty"`
	TechLevel      int         `toml:"tech_level,omitempty" json:"tech_level,omitempty"`
	UsageFrequency string      `toml:"usage_frequency,omitempty" json:"usage_frequency,omitempty"`
	Emoji          string      `toml:"emoji,omitempty" json:"emoji,omitempty"`
	Metadata       Metadata    `toml:"metadata" json:"metadata"`

	Extra map[string]any `toml:"-" json:"-"`
}

// NewPersona builds a persona with defaults filled in.
func NewPersona(id, name, goal string, typ PersonaType, now time.Time) (*Persona, error) {
	if !ValidPersonaID(id) {
		return nil, validationf("persona id %q must be lowercase kebab or snake case", id)
	}
	if goal == "" {
		return nil, validationf("persona %s: goal is required", id)
	}
	if name == "" {
		name = titleFromID(id)
	}
	if !typ.Valid() {
		typ = PersonaTypePersona
	}
	return &Persona{
		ID:       id,
		Name:     name,
		Goal:     goal,
		Type:     typ,
		Emoji:    DefaultEmoji(id, typ),
		Metadata: NewMetadata(now),
	}, nil
}

func titleFromID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// DefaultEmoji picks a display emoji from well-known keywords in the id,
// falling back to the type's generic symbol.
func DefaultEmoji(id string, typ PersonaType) string {
	switch {
	case strings.Contains(id, "admin"):
		return "🛡️"
	case strings.Contains(id, "developer"), strings.Contains(id, "dev"):
		return "💻"
	case strings.Contains(id, "manager"):
		return "📋"
	case strings.Contains(id, "customer"), strings.Contains(id, "client"):
		return "🛒"
	case strings.Contains(id, "support"):
		return "🎧"
	}
	switch typ {
	case PersonaTypeSystem:
		return "⚙️"
	case PersonaTypeExternalService:
		return "🌐"
	case PersonaTypeDatabase:
		return "🗄️"
	case PersonaTypeCustom:
		return "🔧"
	default:
		return "👤"
	}
}

// Validate checks persona invariants.
func (p *Persona) Validate() error {
	if !ValidPersonaID(p.ID) {
		return validationf("persona id %q must be lowercase kebab or snake case", p.ID)
	}
	if p.Name == "" {
		return validationf("persona %s: name is required", p.ID)
	}
	if p.Goal == "" {
		return validationf("persona %s: goal is required", p.ID)
	}
	if !p.Type.Valid() {
		return validationf("persona %s: invalid type %q", p.ID, p.Type)
	}
	if p.TechLevel < 0 || p.TechLevel > 5 {
		return validationf("persona %s: tech_level must be between 1 and 5", p.ID)
	}
	return nil
}
