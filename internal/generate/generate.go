// Package generate turns use case aggregates into their rendered
// outputs: methodology views, per-language test skeletons, persona
// pages, and the project overview.
package generate

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mucm/internal/config"
	"mucm/internal/domain"
	"mucm/internal/methodology"
	"mucm/internal/render"
)

//go:embed templates
var templatesFS embed.FS

// Language is a supported test skeleton target.
type Language struct {
	Name string
	Ext  string
}

var languages = []Language{
	{Name: "python", Ext: "py"},
	{Name: "javascript", Ext: "js"},
	{Name: "go", Ext: "go"},
}

// Languages returns the supported test languages in display order.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

func languageExt(name string) (string, bool) {
	for _, l := range languages {
		if l.Name == name {
			return l.Ext, true
		}
	}
	return "", false
}

// Generator owns a template engine loaded with the built-in templates
// plus any project overrides.
type Generator struct {
	Engine   *render.Engine
	Registry *methodology.Registry
	Config   *config.Config
	Root     string
}

// New builds a generator for the project. Built-in templates register
// first; files under the project template dir override them by name.
func New(root string, cfg *config.Config, reg *methodology.Registry) (*Generator, error) {
	engine := render.NewEngine()
	if err := registerEmbedded(engine); err != nil {
		return nil, err
	}
	if err := registerOverrides(engine, cfg.TemplateDir(root)); err != nil {
		return nil, err
	}
	return &Generator{Engine: engine, Registry: reg, Config: cfg, Root: root}, nil
}

func registerEmbedded(engine *render.Engine) error {
	return fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return err
		}
		data, err := templatesFS.ReadFile(path)
		if err != nil {
			return err
		}
		return engine.Register(templateName(strings.TrimPrefix(path, "templates/")), string(data))
	})
}

func registerOverrides(engine *render.Engine, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return engine.Register(templateName(filepath.ToSlash(rel)), string(data))
	})
}

func templateName(rel string) string {
	return strings.TrimSuffix(rel, ".tmpl")
}

// Artifact is one rendered output file.
type Artifact struct {
	Name    string
	Content string
}

// Materialize renders every enabled view of the use case, in
// declaration order.
func (g *Generator) Materialize(uc *domain.UseCase) ([]Artifact, error) {
	var out []Artifact
	for _, view := range uc.EnabledViews() {
		def, level, err := g.Registry.ResolveView(view)
		if err != nil {
			return nil, err
		}
		fields, err := methodology.ResolveFields(def, level.Name)
		if err != nil {
			return nil, err
		}
		ctx, err := buildContext(uc, view.Methodology, fields)
		if err != nil {
			return nil, err
		}
		name := view.Methodology + "/" + level.Name
		content, err := g.Engine.Render(name, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{
			Name:    fmt.Sprintf("%s-%s-%s.md", uc.ID, view.Methodology, level.Abbreviation),
			Content: content,
		})
	}
	return out, nil
}
