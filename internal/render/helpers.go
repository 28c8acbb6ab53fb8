package render

import (
	"encoding/json"
	"sort"
	"strings"
)

// NameList is a helper result that both prints as a JSON array and
// ranges as a plain slice inside templates.
type NameList []string

func (l NameList) String() string {
	if len(l) == 0 {
		return "[]"
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return "[]"
	}
	return string(data)
}

// scenarioMaps normalizes the scenarios argument, which may be typed
// domain values or the map contexts the generators build, into plain
// maps via a JSON round-trip.
func scenarioMaps(scenarios any) []map[string]any {
	data, err := json.Marshal(scenarios)
	if err != nil {
		return nil
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// actorName extracts a display name from an actor serialized either as
// a bare string or as a single-key tagged object. Other shapes are
// skipped.
func actorName(v any) (string, bool) {
	switch a := v.(type) {
	case string:
		if a != "" {
			return a, true
		}
	case map[string]any:
		if len(a) != 1 {
			return "", false
		}
		for key, val := range a {
			if strings.EqualFold(key, "custom") {
				if s, ok := val.(string); ok && s != "" {
					return s, true
				}
				return "", false
			}
			return key, true
		}
	}
	return "", false
}

func uniqueActors(scenarios any) NameList {
	seen := map[string]bool{}
	for _, s := range scenarioMaps(scenarios) {
		steps, _ := s["steps"].([]any)
		for _, raw := range steps {
			step, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := actorName(step["actor"]); ok {
				seen[name] = true
			}
		}
	}
	return sortedList(seen)
}

// hasPersonas returns a non-empty string iff any scenario carries a
// persona, so templates can use it directly in an if block.
func hasPersonas(scenarios any) string {
	for _, s := range scenarioMaps(scenarios) {
		if p, ok := s["persona"].(string); ok && p != "" {
			return "1"
		}
	}
	return ""
}

func uniquePersonas(scenarios any) NameList {
	seen := map[string]bool{}
	for _, s := range scenarioMaps(scenarios) {
		if p, ok := s["persona"].(string); ok && p != "" {
			seen[p] = true
		}
	}
	return sortedList(seen)
}

func sortedList(seen map[string]bool) NameList {
	out := make(NameList, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
