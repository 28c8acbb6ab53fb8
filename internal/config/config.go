package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the project marker; its presence under Dir makes a
// directory an initialized project root.
const FileName = "mucm.toml"

// Dir is the per-project configuration directory, relative to the
// project root. It also holds templates and methodology overrides.
const Dir = ".config/.mucm"

// Config models mucm.toml.
type Config struct {
	Project struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
	} `toml:"project"`
	Directories struct {
		UseCaseDir  string `toml:"use_case_dir"`
		TestDir     string `toml:"test_dir"`
		PersonaDir  string `toml:"persona_dir"`
		TemplateDir string `toml:"template_dir,omitempty"`
		TomlDir     string `toml:"toml_dir,omitempty"`
	} `toml:"directories"`
	Templates struct {
		Methodologies      []string `toml:"methodologies"`
		DefaultMethodology string   `toml:"default_methodology"`
		TestLanguage       string   `toml:"test_language"`
		StorageBackend     string   `toml:"storage_backend"`
	} `toml:"templates"`
	Generation struct {
		TestLanguage               string `toml:"test_language"`
		AutoGenerateTests          bool   `toml:"auto_generate_tests"`
		OverwriteTestDocumentation bool   `toml:"overwrite_test_documentation"`
	} `toml:"generation"`
	Metadata struct {
		Created     bool `toml:"created"`
		LastUpdated bool `toml:"last_updated"`
	} `toml:"metadata"`
}

// Supported storage backends.
const (
	BackendTOML   = "toml"
	BackendSQLite = "sqlite"
)

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.Name == "" {
		return fmt.Errorf("config.project.name is required")
	}
	if c.Directories.UseCaseDir == "" {
		return fmt.Errorf("config.directories.use_case_dir is required")
	}
	if c.Directories.TestDir == "" {
		return fmt.Errorf("config.directories.test_dir is required")
	}
	if c.Directories.PersonaDir == "" {
		return fmt.Errorf("config.directories.persona_dir is required")
	}
	switch c.Templates.StorageBackend {
	case BackendTOML, BackendSQLite:
	default:
		return fmt.Errorf("config.templates.storage_backend must be %q or %q, got %q",
			BackendTOML, BackendSQLite, c.Templates.StorageBackend)
	}
	if len(c.Templates.Methodologies) == 0 {
		return fmt.Errorf("config.templates.methodologies must list at least one methodology")
	}
	if c.Templates.DefaultMethodology != "" {
		found := false
		for _, m := range c.Templates.Methodologies {
			if m == c.Templates.DefaultMethodology {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("config.templates.default_methodology %q is not in the methodologies list",
				c.Templates.DefaultMethodology)
		}
	}
	return nil
}

// TestLanguage resolves the configured skeleton language; the
// generation section wins over the legacy templates entry.
func (c *Config) TestLanguage() string {
	if c.Generation.TestLanguage != "" {
		return c.Generation.TestLanguage
	}
	if c.Templates.TestLanguage != "" {
		return c.Templates.TestLanguage
	}
	return "python"
}

// Path returns the config file path for a project root.
func Path(root string) string {
	if root == "" {
		root = "."
	}
	return filepath.Join(root, Dir, FileName)
}

// TemplateDir returns the directory holding user template overrides.
func (c *Config) TemplateDir(root string) string {
	if c.Directories.TemplateDir != "" {
		return filepath.Join(root, c.Directories.TemplateDir)
	}
	return filepath.Join(root, Dir, "templates")
}

// MethodologyDir returns the directory holding user methodology
// definition overrides.
func MethodologyDir(root string) string {
	return filepath.Join(root, Dir, "methodologies")
}

// Load reads and validates config from the project root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		return nil, err
	}
	return FromTOML(data)
}

// LoadOptional returns nil, nil if the config file does not exist.
func LoadOptional(root string) (*Config, error) {
	cfg, err := Load(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

// FromTOML parses and validates config from raw TOML bytes.
func FromTOML(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config toml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the default Config struct for a project.
func Default(projectName string) *Config {
	var cfg Config
	if err := toml.Unmarshal([]byte(GenerateDefault(projectName)), &cfg); err != nil {
		panic(fmt.Sprintf("default config template is invalid: %v", err))
	}
	return &cfg
}

// GenerateDefault returns default config TOML.
func GenerateDefault(projectName string) string {
	return fmt.Sprintf(defaultTemplate, projectName)
}

// Save writes the config under the project root, creating the config
// directory if needed.
func (c *Config) Save(root string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

const defaultTemplate = `[project]
name = %q
description = "Use case documentation managed with mucm"

[directories]
use_case_dir = "docs/use-cases"
test_dir = "tests/use-cases"
persona_dir = "docs/personas"

[templates]
methodologies = ["business"]
default_methodology = "business"
test_language = "python"
storage_backend = "toml"

[generation]
test_language = "python"
auto_generate_tests = true
overwrite_test_documentation = false

[metadata]
created = true
last_updated = true
`
