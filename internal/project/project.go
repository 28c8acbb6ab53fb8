// Package project handles bootstrap and discovery of an initialized
// project root.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mucm/internal/config"
	"mucm/internal/generate"
)

// ErrNotInitialized is returned when an operation needs a project and
// the directory has none.
var ErrNotInitialized = errors.New("no project found; run 'mucm init' first")

// ErrAlreadyInitialized is returned by Init on an initialized root.
var ErrAlreadyInitialized = errors.New("project already initialized")

// IsInitialized reports whether root carries a project config.
func IsInitialized(root string) bool {
	_, err := os.Stat(config.Path(root))
	return err == nil
}

// Require loads the project config or reports ErrNotInitialized.
func Require(root string) (*config.Config, error) {
	cfg, err := config.LoadOptional(root)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%s: %w", root, ErrNotInitialized)
	}
	return cfg, nil
}

// Options customizes bootstrap.
type Options struct {
	Name           string
	Description    string
	StorageBackend string
	TestLanguage   string
}

// Init bootstraps the project layout: config file, documentation and
// test directories, and editable copies of the built-in templates.
func Init(root string, opts Options) (*config.Config, error) {
	if IsInitialized(root) {
		return nil, fmt.Errorf("%s: %w", root, ErrAlreadyInitialized)
	}
	name := opts.Name
	if name == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		name = filepath.Base(abs)
	}
	cfg := config.Default(name)
	if opts.Description != "" {
		cfg.Project.Description = opts.Description
	}
	if opts.StorageBackend != "" {
		cfg.Templates.StorageBackend = opts.StorageBackend
	}
	if opts.TestLanguage != "" {
		cfg.Templates.TestLanguage = opts.TestLanguage
		cfg.Generation.TestLanguage = opts.TestLanguage
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, dir := range []string{
		cfg.Directories.UseCaseDir,
		cfg.Directories.TestDir,
		cfg.Directories.PersonaDir,
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(config.MethodologyDir(root), 0o755); err != nil {
		return nil, err
	}
	if err := generate.InstallTemplates(cfg.TemplateDir(root)); err != nil {
		return nil, err
	}
	if err := cfg.Save(root); err != nil {
		return nil, err
	}
	return cfg, nil
}
