package domain

import (
	"fmt"
	"strings"
)

// ScenarioType classifies a scenario's role within its use case.
type ScenarioType string

const (
	ScenarioHappyPath       ScenarioType = "happy_path"
	ScenarioAlternativeFlow ScenarioType = "alternative_flow"
	ScenarioExceptionFlow   ScenarioType = "exception_flow"
	ScenarioExtension       ScenarioType = "extension"
)

// ParseScenarioType accepts the canonical encodings plus common shorthands.
func ParseScenarioType(s string) (ScenarioType, error) {
	switch strings.ToLower(s) {
	case "happy_path", "happy", "main", "primary":
		return ScenarioHappyPath, nil
	case "alternative_flow", "alternative", "alt":
		return ScenarioAlternativeFlow, nil
	case "exception_flow", "exception", "error":
		return ScenarioExceptionFlow, nil
	case "extension", "ext":
		return ScenarioExtension, nil
	}
	return "", fmt.Errorf("%w: invalid scenario type %q (valid: happy_path, alternative_flow, exception_flow, extension)", ErrValidation, s)
}

func (t ScenarioType) Valid() bool {
	switch t {
	case ScenarioHappyPath, ScenarioAlternativeFlow, ScenarioExceptionFlow, ScenarioExtension:
		return true
	}
	return false
}
