// Package sqlitestore is the relational backend. Every aggregate
// mutation runs inside one transaction; the on-disk schema is managed
// by embedded forward-only migrations.
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mucm/internal/config"
	"mucm/internal/domain"
	"mucm/internal/store"
)

const dbName = "mucm.db"

// Store implements store.Store on SQLite.
type Store struct {
	db         *sql.DB
	useCaseDir string
}

var _ store.Store = (*Store)(nil)

// Path returns the database path for a project root.
func Path(root string) string {
	return filepath.Join(root, config.Dir, dbName)
}

// Open opens (creating if needed) the project database and migrates it
// to the current schema.
func Open(root string, cfg *config.Config) (*Store, error) {
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:         db,
		useCaseDir: filepath.Join(root, cfg.Directories.UseCaseDir),
	}, nil
}

func (s *Store) Backend() string { return config.BackendSQLite }

func (s *Store) Close() error { return s.db.Close() }

// Save replaces the whole aggregate in one transaction.
func (s *Store) Save(uc *domain.UseCase) error {
	if err := uc.Validate(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM use_cases WHERE id = ?`, uc.ID); err != nil {
		return err
	}
	extra, err := jsonOrNull(uc.Extra)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO use_cases (id, title, category, description, priority, created_at, updated_at, extra_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uc.ID, uc.Title, uc.Category, uc.Description, string(uc.Priority),
		uc.Metadata.CreatedAt, uc.Metadata.UpdatedAt, extra); err != nil {
		return err
	}
	if err := insertConditions(tx, "use_case_preconditions", uc.ID, uc.Preconditions); err != nil {
		return err
	}
	if err := insertConditions(tx, "use_case_postconditions", uc.ID, uc.Postconditions); err != nil {
		return err
	}
	for i, r := range uc.References {
		if _, err := tx.Exec(
			`INSERT INTO use_case_references (use_case_id, seq, target_id, relationship, description)
			 VALUES (?, ?, ?, ?, ?)`,
			uc.ID, i, r.TargetID, r.Relationship, nullable(r.Description)); err != nil {
			return err
		}
	}
	for i, v := range uc.Views {
		if _, err := tx.Exec(
			`INSERT INTO methodology_views (use_case_id, seq, methodology, level, enabled)
			 VALUES (?, ?, ?, ?, ?)`,
			uc.ID, i, v.Methodology, v.Level, boolInt(v.Enabled)); err != nil {
			return err
		}
	}
	for m, fields := range uc.MethodologyFields {
		for name, value := range fields {
			data, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("field %s/%s: %w", m, name, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO methodology_fields (use_case_id, methodology, field_name, value_json)
				 VALUES (?, ?, ?, ?)`, uc.ID, m, name, string(data)); err != nil {
				return err
			}
		}
	}
	for i := range uc.Scenarios {
		if err := insertScenario(tx, uc.ID, i, &uc.Scenarios[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertScenario(tx *sql.Tx, useCaseID string, seq int, sc *domain.Scenario) error {
	extra, err := jsonOrNull(sc.Extra)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO scenarios (id, use_case_id, seq, title, description, type, status, persona, created_at, updated_at, extra_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, useCaseID, seq, sc.Title, sc.Description, string(sc.Type), string(sc.Status),
		nullable(sc.Persona), sc.Metadata.CreatedAt, sc.Metadata.UpdatedAt, extra); err != nil {
		return err
	}
	for _, st := range sc.Steps {
		if _, err := tx.Exec(
			`INSERT INTO scenario_steps (scenario_id, step_order, actor, receiver, action, description, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, st.Order, st.Actor.Name(), nullable(st.Receiver), st.Action, st.Description, nullable(st.Notes)); err != nil {
			return err
		}
	}
	for kind, texts := range map[string][]string{"pre": sc.Preconditions, "post": sc.Postconditions} {
		for i, text := range texts {
			if _, err := tx.Exec(
				`INSERT INTO scenario_conditions (scenario_id, kind, seq, text) VALUES (?, ?, ?, ?)`,
				sc.ID, kind, i, text); err != nil {
				return err
			}
		}
	}
	for i, r := range sc.References {
		if _, err := tx.Exec(
			`INSERT INTO scenario_references (scenario_id, seq, ref_type, target_id, relationship, description)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sc.ID, i, string(r.RefType), r.TargetID, r.Relationship, nullable(r.Description)); err != nil {
			return err
		}
	}
	return nil
}

func insertConditions(tx *sql.Tx, table, useCaseID string, conditions []domain.Condition) error {
	for i, c := range conditions {
		if _, err := tx.Exec(
			`INSERT INTO `+table+` (use_case_id, seq, text, target_type, target_id, relationship)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			useCaseID, i, c.Text, nullable(string(c.TargetType)), nullable(c.TargetID), nullable(c.Relationship)); err != nil {
			return err
		}
	}
	return nil
}

// LoadByID returns the aggregate or store.ErrNotFound.
func (s *Store) LoadByID(id string) (*domain.UseCase, error) {
	uc, err := s.loadHeader(id)
	if err != nil {
		return nil, err
	}
	if err := s.loadBody(uc); err != nil {
		return nil, err
	}
	return uc, nil
}

// LoadAll returns every aggregate ordered by ID.
func (s *Store) LoadAll() ([]*domain.UseCase, error) {
	rows, err := s.db.Query(`SELECT id FROM use_cases ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*domain.UseCase, 0, len(ids))
	for _, id := range ids {
		uc, err := s.LoadByID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, nil
}

// ExistingIDs returns the set of stored use case IDs.
func (s *Store) ExistingIDs() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT id FROM use_cases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// SaveRendered records the artifact in the database and mirrors it to
// the documentation tree so rendered views stay browsable.
func (s *Store) SaveRendered(id, artifact, content string) error {
	var category string
	err := s.db.QueryRow(`SELECT category FROM use_cases WHERE id = ?`, id).Scan(&category)
	if err == sql.ErrNoRows {
		return fmt.Errorf("use case %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(
		`INSERT INTO rendered_artifacts (use_case_id, name, content, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(use_case_id, name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		id, artifact, content, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	dir := filepath.Join(s.useCaseDir, domain.SnakeCase(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, artifact), []byte(content), 0o644)
}

// LoadRendered returns a stored artifact's content, or ErrNotFound.
func (s *Store) LoadRendered(id, artifact string) (string, error) {
	var content string
	err := s.db.QueryRow(
		`SELECT content FROM rendered_artifacts WHERE use_case_id = ? AND name = ?`, id, artifact).Scan(&content)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("artifact %s of %s: %w", artifact, id, store.ErrNotFound)
	}
	return content, err
}

// Delete removes the aggregate along with its mirrored artifact files.
// Child rows go with it via cascade.
func (s *Store) Delete(id string) error {
	var category string
	err := s.db.QueryRow(`SELECT category FROM use_cases WHERE id = ?`, id).Scan(&category)
	if err == sql.ErrNoRows {
		return fmt.Errorf("use case %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return err
	}
	rows, err := s.db.Query(`SELECT name FROM rendered_artifacts WHERE use_case_id = ?`, id)
	if err != nil {
		return err
	}
	var artifacts []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		artifacts = append(artifacts, name)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM use_cases WHERE id = ?`, id); err != nil {
		return err
	}
	dir := filepath.Join(s.useCaseDir, domain.SnakeCase(category))
	for _, name := range artifacts {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func jsonOrNull(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func jsonMap(v sql.NullString) (map[string]any, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(v.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
