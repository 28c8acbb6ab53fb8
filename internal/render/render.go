// Package render is the template engine behind every generated
// artifact. Templates are registered up front, so a malformed source
// fails loudly at startup rather than mid-generation.
package render

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Engine renders named templates with the domain helper set installed.
type Engine struct {
	templates map[string]*template.Template
	funcs     template.FuncMap
}

// NewEngine returns an engine with no templates registered.
func NewEngine() *Engine {
	e := &Engine{templates: map[string]*template.Template{}}
	e.funcs = template.FuncMap{
		"unique_actors":   uniqueActors,
		"has_personas":    hasPersonas,
		"unique_personas": uniquePersonas,
		"snake":           snakeIdent,
		"upper":           strings.ToUpper,
		"lower":           strings.ToLower,
		"title":           titleWords,
		"join":            strings.Join,
	}
	return e
}

// Register parses and stores a template. Registering an existing name
// replaces it.
func (e *Engine) Register(name, body string) error {
	tmpl, err := template.New(name).Funcs(e.funcs).Option("missingkey=zero").Parse(body)
	if err != nil {
		return fmt.Errorf("template %s: %w", name, err)
	}
	e.templates[name] = tmpl
	return nil
}

// Has reports whether a template is registered under name.
func (e *Engine) Has(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// Names returns the registered template names, sorted.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named template against ctx. Placeholders absent
// from a map context render as empty strings rather than "<no value>",
// since missingkey=zero yields an untyped nil for them.
func (e *Engine) Render(name string, ctx any) (string, error) {
	tmpl, ok := e.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s is not registered (have: %s)", name, strings.Join(e.Names(), ", "))
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, ctx); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.ReplaceAll(b.String(), "<no value>", ""), nil
}

func snakeIdent(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func titleWords(s string) string {
	words := strings.Fields(strings.ReplaceAll(strings.ReplaceAll(s, "-", " "), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
