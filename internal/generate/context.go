package generate

import (
	"encoding/json"
	"fmt"

	"mucm/internal/domain"
	"mucm/internal/methodology"
)

// buildContext flattens the use case into the map the templates see.
// Methodology field values and the open extra map are merged in at the
// top level without ever clobbering a standard key.
func buildContext(uc *domain.UseCase, methodologyName string, fields methodology.FieldSet) (map[string]any, error) {
	data, err := json.Marshal(uc)
	if err != nil {
		return nil, fmt.Errorf("context for %s: %w", uc.ID, err)
	}
	ctx := map[string]any{}
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("context for %s: %w", uc.ID, err)
	}
	ctx["status"] = string(uc.AggregateStatus())
	ctx["created_at"] = uc.Metadata.CreatedAt
	ctx["updated_at"] = uc.Metadata.UpdatedAt
	ctx["methodology"] = methodologyName

	// Field descriptors drive prompting hints in templates that want
	// them; sorted for stable output.
	var descriptors []map[string]any
	for _, name := range fields.Names() {
		f := fields[name]
		descriptors = append(descriptors, map[string]any{
			"name":        name,
			"label":       f.Label,
			"type":        f.Type,
			"required":    f.Required,
			"description": f.Description,
			"example":     f.Example,
		})
	}
	ctx["custom_fields"] = descriptors

	softMerge(ctx, uc.MethodologyFields[methodologyName])
	softMerge(ctx, uc.Extra)
	return ctx, nil
}

// softMerge inserts keys that are not already present.
func softMerge(ctx map[string]any, values map[string]any) {
	for k, v := range values {
		if _, taken := ctx[k]; !taken {
			ctx[k] = v
		}
	}
}
