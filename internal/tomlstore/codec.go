package tomlstore

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"mucm/internal/domain"
)

// Known key sets drive the forward-compatibility round-trip: anything a
// document carries outside them is preserved verbatim in Extra and
// written back on save.
var knownUseCaseKeys = keySet(
	"id", "title", "category", "description", "priority",
	"scenarios", "preconditions", "postconditions", "references",
	"views", "methodology_fields", "metadata",
)

var knownScenarioKeys = keySet(
	"id", "title", "description", "type", "status", "persona",
	"metadata", "steps", "preconditions", "postconditions", "references",
)

var knownPersonaKeys = keySet(
	"id", "name", "type", "description", "goal", "context",
	"tech_level", "usage_frequency", "emoji", "metadata",
)

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func unknownKeys(raw map[string]any, known map[string]bool) map[string]any {
	var extra map[string]any
	for k, v := range raw {
		if !known[k] {
			if extra == nil {
				extra = map[string]any{}
			}
			extra[k] = v
		}
	}
	return extra
}

// mergeExtra inserts extra keys into the document map without ever
// clobbering a standard key.
func mergeExtra(doc map[string]any, extra map[string]any) {
	for k, v := range extra {
		if _, taken := doc[k]; !taken {
			doc[k] = v
		}
	}
}

// encodeWithExtra marshals v, re-reads it as a generic map, folds the
// extra keys back in, applies mutate to the map, and marshals the map.
func encodeWithExtra(v any, extra map[string]any, mutate func(map[string]any) error) ([]byte, error) {
	structured, err := toml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := toml.Unmarshal(structured, &doc); err != nil {
		return nil, err
	}
	mergeExtra(doc, extra)
	if mutate != nil {
		if err := mutate(doc); err != nil {
			return nil, err
		}
	}
	return toml.Marshal(doc)
}

// tableArray normalizes the decoded shapes go-toml may use for an
// array of tables.
func tableArray(v any) []map[string]any {
	switch arr := v.(type) {
	case []map[string]any:
		return arr
	case []any:
		out := make([]map[string]any, 0, len(arr))
		for _, entry := range arr {
			if m, ok := entry.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func encodeUseCase(uc *domain.UseCase) ([]byte, error) {
	return encodeWithExtra(uc, uc.Extra, func(doc map[string]any) error {
		raw := tableArray(doc["scenarios"])
		if raw == nil {
			return nil
		}
		if len(raw) != len(uc.Scenarios) {
			return fmt.Errorf("encode %s: scenario count drifted", uc.ID)
		}
		for i, m := range raw {
			mergeExtra(m, uc.Scenarios[i].Extra)
		}
		return nil
	})
}

func decodeUseCase(data []byte) (*domain.UseCase, error) {
	var uc domain.UseCase
	if err := toml.Unmarshal(data, &uc); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	uc.Extra = unknownKeys(raw, knownUseCaseKeys)
	if scenarios := tableArray(raw["scenarios"]); len(scenarios) == len(uc.Scenarios) {
		for i, m := range scenarios {
			uc.Scenarios[i].Extra = unknownKeys(m, knownScenarioKeys)
		}
	}
	return &uc, nil
}
