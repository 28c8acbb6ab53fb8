package generate

import (
	"os"
	"path/filepath"
	"sort"

	"mucm/internal/domain"
)

// Overview renders the project-level index: every use case grouped by
// category with its aggregate status.
func (g *Generator) Overview(all []*domain.UseCase) (string, error) {
	grouped := map[string][]*domain.UseCase{}
	for _, uc := range all {
		grouped[uc.Category] = append(grouped[uc.Category], uc)
	}
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	var categories []map[string]any
	for _, name := range names {
		ucs := grouped[name]
		sort.Slice(ucs, func(i, j int) bool { return ucs[i].ID < ucs[j].ID })
		var rows []map[string]any
		for _, uc := range ucs {
			rows = append(rows, map[string]any{
				"id":             uc.ID,
				"title":          uc.Title,
				"priority":       string(uc.Priority),
				"status":         string(uc.AggregateStatus()),
				"scenario_count": len(uc.Scenarios),
			})
		}
		categories = append(categories, map[string]any{"name": name, "use_cases": rows})
	}
	ctx := map[string]any{
		"project":    g.Config.Project.Name,
		"total":      len(all),
		"categories": categories,
	}
	return g.Engine.Render("overview", ctx)
}

// WriteOverview writes README.md at the top of the use case tree.
func (g *Generator) WriteOverview(all []*domain.UseCase) (string, error) {
	content, err := g.Overview(all)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(g.Root, g.Config.Directories.UseCaseDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "README.md")
	return path, os.WriteFile(path, []byte(content), 0o644)
}
