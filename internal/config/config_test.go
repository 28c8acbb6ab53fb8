package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("demo")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Project.Name != "demo" {
		t.Fatalf("project name %q", cfg.Project.Name)
	}
	if cfg.Templates.StorageBackend != BackendTOML {
		t.Fatalf("default backend %q", cfg.Templates.StorageBackend)
	}
	if cfg.TestLanguage() != "python" {
		t.Fatalf("default test language %q", cfg.TestLanguage())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default("roundtrip")
	cfg.Templates.StorageBackend = BackendSQLite
	cfg.Generation.TestLanguage = "go"
	if err := cfg.Save(root); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Project.Name != "roundtrip" || loaded.Templates.StorageBackend != BackendSQLite {
		t.Fatalf("round trip lost data: %+v", loaded)
	}
	if loaded.TestLanguage() != "go" {
		t.Fatalf("test language %q", loaded.TestLanguage())
	}
}

func TestLoadOptionalMissing(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil || cfg != nil {
		t.Fatalf("got %v, %v", cfg, err)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default("demo")
	cfg.Templates.StorageBackend = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestValidateRejectsUnlistedDefaultMethodology(t *testing.T) {
	cfg := Default("demo")
	cfg.Templates.DefaultMethodology = "tester"
	if err := cfg.Validate(); err == nil {
		t.Fatal("default methodology outside list accepted")
	}
}

func TestFromTOMLRejectsGarbage(t *testing.T) {
	if _, err := FromTOML([]byte("not = [valid")); err == nil {
		t.Fatal("garbage toml accepted")
	}
}

func TestLoadMissingFileReportsNotExist(t *testing.T) {
	_, err := Load(t.TempDir())
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestPath(t *testing.T) {
	if got := Path("proj"); got != filepath.Join("proj", Dir, FileName) {
		t.Fatalf("got %q", got)
	}
	if got := Path(""); got != filepath.Join(".", Dir, FileName) {
		t.Fatalf("got %q", got)
	}
}
