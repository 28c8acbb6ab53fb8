package generate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"mucm/internal/domain"
)

// PersonaPage renders the markdown page for one persona.
func (g *Generator) PersonaPage(p *domain.Persona) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	ctx := map[string]any{}
	if err := json.Unmarshal(data, &ctx); err != nil {
		return "", err
	}
	softMerge(ctx, p.Extra)
	return g.Engine.Render("persona", ctx)
}

// WritePersonaPage writes the page into the persona directory.
func (g *Generator) WritePersonaPage(p *domain.Persona) (string, error) {
	content, err := g.PersonaPage(p)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(g.Root, g.Config.Directories.PersonaDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, p.ID+".md")
	return path, os.WriteFile(path, []byte(content), 0o644)
}
