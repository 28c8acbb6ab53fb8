// Package tomlstore is the flat-file backend: one self-contained TOML
// document per use case under <use_case_dir>/<category>/, with rendered
// artifacts written alongside.
package tomlstore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"mucm/internal/config"
	"mucm/internal/domain"
	"mucm/internal/store"
)

// Store implements store.Store on a directory tree.
type Store struct {
	useCaseDir string
	personaDir string
}

var _ store.Store = (*Store)(nil)

// New builds a flat-file store rooted at the project root.
func New(root string, cfg *config.Config) *Store {
	return &Store{
		useCaseDir: filepath.Join(root, cfg.Directories.UseCaseDir),
		personaDir: filepath.Join(root, cfg.Directories.PersonaDir),
	}
}

func (s *Store) Backend() string { return config.BackendTOML }

// Close is a no-op; file handles are scoped to single calls.
func (s *Store) Close() error { return nil }

func (s *Store) docPath(uc *domain.UseCase) string {
	return filepath.Join(s.useCaseDir, domain.SnakeCase(uc.Category), uc.ID+".toml")
}

// findPath locates the document for id anywhere under the tree, since
// the category (and so the directory) is not derivable from the ID.
func (s *Store) findPath(id string) (string, error) {
	var found string
	err := filepath.WalkDir(s.useCaseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() && d.Name() == id+".toml" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("use case %s: %w", id, store.ErrNotFound)
	}
	return found, nil
}

// Save writes the whole aggregate atomically: marshal to a temp file in
// the target directory, then rename over the destination.
func (s *Store) Save(uc *domain.UseCase) error {
	if err := uc.Validate(); err != nil {
		return err
	}
	// The document may move directories when the category changes; its
	// rendered artifacts go with it so the old directory holds no
	// stale copies.
	if prior, err := s.findPath(uc.ID); err == nil && prior != s.docPath(uc) {
		if err := os.Remove(prior); err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := removeArtifacts(filepath.Dir(prior), uc.ID); err != nil {
			return err
		}
	}
	data, err := encodeUseCase(uc)
	if err != nil {
		return err
	}
	return atomicWrite(s.docPath(uc), data)
}

// LoadByID returns the aggregate or store.ErrNotFound.
func (s *Store) LoadByID(id string) (*domain.UseCase, error) {
	path, err := s.findPath(id)
	if err != nil {
		return nil, err
	}
	return loadFile(path)
}

// LoadAll walks the tree and returns aggregates in lexicographic path
// order.
func (s *Store) LoadAll() ([]*domain.UseCase, error) {
	paths, err := s.documentPaths()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.UseCase, 0, len(paths))
	for _, path := range paths {
		uc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, nil
}

// ExistingIDs scans file names without parsing document bodies, so even
// a torn document from a crashed run still reserves its ID.
func (s *Store) ExistingIDs() (map[string]bool, error) {
	paths, err := s.documentPaths()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(paths))
	for _, path := range paths {
		ids[strings.TrimSuffix(filepath.Base(path), ".toml")] = true
	}
	return ids, nil
}

// SaveRendered writes a rendered artifact next to the use case document.
func (s *Store) SaveRendered(id, artifact, content string) error {
	path, err := s.findPath(id)
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(filepath.Dir(path), artifact), []byte(content))
}

// Delete removes the document and every rendered artifact derived from
// it.
func (s *Store) Delete(id string) error {
	path, err := s.findPath(id)
	if err != nil {
		return err
	}
	if err := removeArtifacts(filepath.Dir(path), id); err != nil {
		return err
	}
	return os.Remove(path)
}

// removeArtifacts deletes every rendered <id>-*.md file in dir.
func removeArtifacts(dir, id string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), id+"-") && strings.HasSuffix(e.Name(), ".md") {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) documentPaths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.useCaseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		name := d.Name()
		if !d.IsDir() && strings.HasPrefix(name, "UC-") && strings.HasSuffix(name, ".toml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func loadFile(path string) (*domain.UseCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	uc, err := decodeUseCase(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return uc, nil
}

// atomicWrite lands content via a uniquely named temp file in the same
// directory followed by a rename, so readers never observe a torn
// document.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// SavePersona writes a persona record under the persona directory.
func (s *Store) SavePersona(p *domain.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := encodePersona(p)
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(s.personaDir, p.ID+".toml"), data)
}

// LoadPersona returns the persona or store.ErrNotFound.
func (s *Store) LoadPersona(id string) (*domain.Persona, error) {
	data, err := os.ReadFile(filepath.Join(s.personaDir, id+".toml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("persona %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return decodePersona(data)
}

// LoadAllPersonas returns personas sorted by ID.
func (s *Store) LoadAllPersonas() ([]*domain.Persona, error) {
	entries, err := os.ReadDir(s.personaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*domain.Persona
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.personaDir, e.Name()))
		if err != nil {
			return nil, err
		}
		p, err := decodePersona(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeletePersona removes the record and its rendered page if present.
func (s *Store) DeletePersona(id string) error {
	path := filepath.Join(s.personaDir, id+".toml")
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("persona %s: %w", id, store.ErrNotFound)
		}
		return err
	}
	if err := os.Remove(filepath.Join(s.personaDir, id+".md")); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func encodePersona(p *domain.Persona) ([]byte, error) {
	return encodeWithExtra(p, p.Extra, nil)
}

func decodePersona(data []byte) (*domain.Persona, error) {
	var p domain.Persona
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	p.Extra = unknownKeys(raw, knownPersonaKeys)
	return &p, nil
}
