package methodology

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mucm/internal/domain"
)

//go:embed defs/*.yaml
var defsFS embed.FS

// Registry holds the known methodology definitions. Built-in
// definitions are embedded; user overrides loaded on top replace them
// wholesale by name.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry loads the embedded definitions.
func NewRegistry() (*Registry, error) {
	r := &Registry{defs: map[string]*Definition{}}
	entries, err := fs.ReadDir(defsFS, "defs")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := defsFS.ReadFile("defs/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := r.register(data, "defs/"+e.Name()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadOverrides reads *.yaml definitions from dir, replacing any
// built-in definition with the same name. A missing dir is not an
// error.
func (r *Registry) LoadOverrides(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := r.register(data, path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(data []byte, source string) error {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("parse methodology %s: %w", source, err)
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("methodology %s: %w", source, err)
	}
	r.defs[def.Name] = &def
	return nil
}

// Available returns the sorted methodology names.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// ResolveView checks that the view's methodology and level exist and
// returns the level.
func (r *Registry) ResolveView(v domain.MethodologyView) (*Definition, *Level, error) {
	def, ok := r.Get(v.Methodology)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown methodology %q (available: %s)",
			domain.ErrValidation, v.Methodology, strings.Join(r.Available(), ", "))
	}
	level := def.Level(v.Level)
	if level == nil {
		return nil, nil, fmt.Errorf("%w: methodology %s has no level %q (levels: %s)",
			domain.ErrValidation, v.Methodology, v.Level, strings.Join(def.LevelNames(), ", "))
	}
	return def, level, nil
}
