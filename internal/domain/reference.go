package domain

import (
	"fmt"
	"strings"
)

// ReferenceType says what kind of aggregate a reference points at.
type ReferenceType string

const (
	RefUseCase  ReferenceType = "use_case"
	RefScenario ReferenceType = "scenario"
)

func ParseReferenceType(s string) (ReferenceType, error) {
	switch strings.ToLower(s) {
	case "use_case", "usecase", "uc":
		return RefUseCase, nil
	case "scenario", "s":
		return RefScenario, nil
	}
	return "", fmt.Errorf("%w: invalid reference type %q (valid: use_case, scenario)", ErrValidation, s)
}

// ValidTargetID checks that id is syntactically valid for the reference
// type. Existence of the target is deliberately not checked; dangling
// references are surfaced by lints, not errors.
func (t ReferenceType) ValidTargetID(id string) bool {
	switch t {
	case RefUseCase:
		return useCaseIDRe.MatchString(id)
	case RefScenario:
		return scenarioIDRe.MatchString(id)
	}
	return false
}

// Relationship names recognized on references and conditions.
const (
	RelDependsOn     = "depends_on"
	RelRequires      = "requires"
	RelExtends       = "extends"
	RelIncludes      = "includes"
	RelPrecedes      = "precedes"
	RelAlternativeTo = "alternative_to"
	RelMustComplete  = "must_complete"
)

var knownRelationships = map[string]bool{
	RelDependsOn:     true,
	RelRequires:      true,
	RelExtends:       true,
	RelIncludes:      true,
	RelPrecedes:      true,
	RelAlternativeTo: true,
	RelMustComplete:  true,
}

func KnownRelationship(rel string) bool { return knownRelationships[rel] }

// IsDependencyRelationship reports whether rel implies that the target
// must be satisfied first.
func IsDependencyRelationship(rel string) bool {
	return rel == RelDependsOn || rel == RelRequires
}

// Condition is a pre- or postcondition, optionally backed by a
// reference to another use case or scenario.
type Condition struct {
	Text         string        `toml:"text" json:"text"`
	TargetType   ReferenceType `toml:"target_type,omitempty" json:"target_type,omitempty"`
	TargetID     string        `toml:"target_id,omitempty" json:"target_id,omitempty"`
	Relationship string        `toml:"relationship,omitempty" json:"relationship,omitempty"`
}

func (c Condition) HasReference() bool {
	return c.TargetType != "" && c.TargetID != ""
}

func (c Condition) IsDependency() bool {
	return IsDependencyRelationship(c.Relationship)
}

// ReferenceDisplay renders "UC-AUTH-001 must_complete" style suffixes
// for listings.
func (c Condition) ReferenceDisplay() string {
	if c.TargetID == "" {
		return ""
	}
	if c.Relationship != "" {
		return c.TargetID + " " + c.Relationship
	}
	return c.TargetID
}

// Validate checks syntactic validity of an attached reference.
func (c Condition) Validate() error {
	if !c.HasReference() {
		if c.TargetType != "" || c.TargetID != "" {
			return fmt.Errorf("%w: condition reference needs both target_type and target_id", ErrValidation)
		}
		return nil
	}
	if !c.TargetType.ValidTargetID(c.TargetID) {
		return fmt.Errorf("%w: target id %q is not a valid %s id", ErrValidation, c.TargetID, c.TargetType)
	}
	return nil
}

// UseCaseReference is a typed pointer from one use case to another.
type UseCaseReference struct {
	TargetID     string `toml:"target_id" json:"target_id"`
	Relationship string `toml:"relationship" json:"relationship"`
	Description  string `toml:"description,omitempty" json:"description,omitempty"`
}

// ScenarioReference points from a scenario to a use case or to another
// scenario.
type ScenarioReference struct {
	RefType      ReferenceType `toml:"ref_type" json:"ref_type"`
	TargetID     string        `toml:"target_id" json:"target_id"`
	Relationship string        `toml:"relationship" json:"relationship"`
	Description  string        `toml:"description,omitempty" json:"description,omitempty"`
}

func (r ScenarioReference) IsDependency() bool {
	return IsDependencyRelationship(r.Relationship)
}
