package generate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// InstallTemplates copies the built-in templates into dir so a project
// can edit them. Existing files are left alone.
func InstallTemplates(dir string) error {
	return fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return err
		}
		rel := strings.TrimPrefix(path, "templates/")
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		if _, err := os.Stat(dest); err == nil {
			return nil
		}
		data, err := templatesFS.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dest, data, 0o644)
	})
}
