package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"mucm/internal/domain"
	"mucm/internal/store"
)

func (s *Store) loadHeader(id string) (*domain.UseCase, error) {
	var uc domain.UseCase
	var priority string
	var extra sql.NullString
	err := s.db.QueryRow(
		`SELECT id, title, category, description, priority, created_at, updated_at, extra_json
		 FROM use_cases WHERE id = ?`, id).
		Scan(&uc.ID, &uc.Title, &uc.Category, &uc.Description, &priority,
			&uc.Metadata.CreatedAt, &uc.Metadata.UpdatedAt, &extra)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("use case %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	uc.Priority = domain.Priority(priority)
	if uc.Extra, err = jsonMap(extra); err != nil {
		return nil, fmt.Errorf("use case %s extra: %w", id, err)
	}
	return &uc, nil
}

func (s *Store) loadBody(uc *domain.UseCase) error {
	var err error
	if uc.Preconditions, err = s.loadConditions("use_case_preconditions", uc.ID); err != nil {
		return err
	}
	if uc.Postconditions, err = s.loadConditions("use_case_postconditions", uc.ID); err != nil {
		return err
	}
	if err := s.loadReferences(uc); err != nil {
		return err
	}
	if err := s.loadViews(uc); err != nil {
		return err
	}
	if err := s.loadFields(uc); err != nil {
		return err
	}
	return s.loadScenarios(uc)
}

func (s *Store) loadConditions(table, id string) ([]domain.Condition, error) {
	rows, err := s.db.Query(
		`SELECT text, target_type, target_id, relationship FROM `+table+`
		 WHERE use_case_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Condition
	for rows.Next() {
		var c domain.Condition
		var targetType, targetID, rel sql.NullString
		if err := rows.Scan(&c.Text, &targetType, &targetID, &rel); err != nil {
			return nil, err
		}
		c.TargetType = domain.ReferenceType(targetType.String)
		c.TargetID = targetID.String
		c.Relationship = rel.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadReferences(uc *domain.UseCase) error {
	rows, err := s.db.Query(
		`SELECT target_id, relationship, description FROM use_case_references
		 WHERE use_case_id = ? ORDER BY seq`, uc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r domain.UseCaseReference
		var desc sql.NullString
		if err := rows.Scan(&r.TargetID, &r.Relationship, &desc); err != nil {
			return err
		}
		r.Description = desc.String
		uc.References = append(uc.References, r)
	}
	return rows.Err()
}

func (s *Store) loadViews(uc *domain.UseCase) error {
	rows, err := s.db.Query(
		`SELECT methodology, level, enabled FROM methodology_views
		 WHERE use_case_id = ? ORDER BY seq`, uc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v domain.MethodologyView
		var enabled int
		if err := rows.Scan(&v.Methodology, &v.Level, &enabled); err != nil {
			return err
		}
		v.Enabled = enabled != 0
		uc.Views = append(uc.Views, v)
	}
	return rows.Err()
}

func (s *Store) loadFields(uc *domain.UseCase) error {
	rows, err := s.db.Query(
		`SELECT methodology, field_name, value_json FROM methodology_fields
		 WHERE use_case_id = ? ORDER BY methodology, field_name`, uc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m, name, raw string
		if err := rows.Scan(&m, &name, &raw); err != nil {
			return err
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("field %s/%s: %w", m, name, err)
		}
		if uc.MethodologyFields == nil {
			uc.MethodologyFields = map[string]map[string]any{}
		}
		if uc.MethodologyFields[m] == nil {
			uc.MethodologyFields[m] = map[string]any{}
		}
		uc.MethodologyFields[m][name] = value
	}
	return rows.Err()
}

func (s *Store) loadScenarios(uc *domain.UseCase) error {
	rows, err := s.db.Query(
		`SELECT id, title, description, type, status, persona, created_at, updated_at, extra_json
		 FROM scenarios WHERE use_case_id = ? ORDER BY seq`, uc.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sc domain.Scenario
		var typ, status string
		var persona, extra sql.NullString
		if err := rows.Scan(&sc.ID, &sc.Title, &sc.Description, &typ, &status,
			&persona, &sc.Metadata.CreatedAt, &sc.Metadata.UpdatedAt, &extra); err != nil {
			return err
		}
		sc.Type = domain.ScenarioType(typ)
		sc.Status = domain.Status(status)
		sc.Persona = persona.String
		if sc.Extra, err = jsonMap(extra); err != nil {
			return fmt.Errorf("scenario %s extra: %w", sc.ID, err)
		}
		uc.Scenarios = append(uc.Scenarios, sc)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range uc.Scenarios {
		if err := s.loadScenarioChildren(&uc.Scenarios[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadScenarioChildren(sc *domain.Scenario) error {
	steps, err := s.db.Query(
		`SELECT step_order, actor, receiver, action, description, notes
		 FROM scenario_steps WHERE scenario_id = ? ORDER BY step_order`, sc.ID)
	if err != nil {
		return err
	}
	defer steps.Close()
	for steps.Next() {
		var st domain.ScenarioStep
		var actor string
		var receiver, notes sql.NullString
		if err := steps.Scan(&st.Order, &actor, &receiver, &st.Action, &st.Description, &notes); err != nil {
			return err
		}
		st.Actor = domain.ParseActor(actor)
		st.Receiver = receiver.String
		st.Notes = notes.String
		sc.Steps = append(sc.Steps, st)
	}
	if err := steps.Err(); err != nil {
		return err
	}

	conds, err := s.db.Query(
		`SELECT kind, text FROM scenario_conditions WHERE scenario_id = ? ORDER BY kind DESC, seq`, sc.ID)
	if err != nil {
		return err
	}
	defer conds.Close()
	for conds.Next() {
		var kind, text string
		if err := conds.Scan(&kind, &text); err != nil {
			return err
		}
		if kind == "pre" {
			sc.Preconditions = append(sc.Preconditions, text)
		} else {
			sc.Postconditions = append(sc.Postconditions, text)
		}
	}
	if err := conds.Err(); err != nil {
		return err
	}

	refs, err := s.db.Query(
		`SELECT ref_type, target_id, relationship, description
		 FROM scenario_references WHERE scenario_id = ? ORDER BY seq`, sc.ID)
	if err != nil {
		return err
	}
	defer refs.Close()
	for refs.Next() {
		var r domain.ScenarioReference
		var refType string
		var desc sql.NullString
		if err := refs.Scan(&refType, &r.TargetID, &r.Relationship, &desc); err != nil {
			return err
		}
		r.RefType = domain.ReferenceType(refType)
		r.Description = desc.String
		sc.References = append(sc.References, r)
	}
	return refs.Err()
}

// SavePersona upserts the persona record.
func (s *Store) SavePersona(p *domain.Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	extra, err := jsonOrNull(p.Extra)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO personas (id, name, type, description, goal, context, tech_level,
		   usage_frequency, emoji, created_at, updated_at, extra_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, type = excluded.type, description = excluded.description,
		   goal = excluded.goal, context = excluded.context, tech_level = excluded.tech_level,
		   usage_frequency = excluded.usage_frequency,
		   emoji = excluded.emoji, updated_at = excluded.updated_at, extra_json = excluded.extra_json`,
		p.ID, p.Name, string(p.Type), p.Description, p.Goal, nullable(p.Context),
		nullableInt(p.TechLevel), nullable(p.UsageFrequency), p.Emoji,
		p.Metadata.CreatedAt, p.Metadata.UpdatedAt, extra)
	return err
}

// LoadPersona returns the persona or store.ErrNotFound.
func (s *Store) LoadPersona(id string) (*domain.Persona, error) {
	row := s.db.QueryRow(
		`SELECT id, name, type, description, goal, context, tech_level,
		   usage_frequency, emoji, created_at, updated_at, extra_json
		 FROM personas WHERE id = ?`, id)
	p, err := scanPersona(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("persona %s: %w", id, store.ErrNotFound)
	}
	return p, err
}

// LoadAllPersonas returns personas ordered by ID.
func (s *Store) LoadAllPersonas() ([]*domain.Persona, error) {
	rows, err := s.db.Query(
		`SELECT id, name, type, description, goal, context, tech_level,
		   usage_frequency, emoji, created_at, updated_at, extra_json
		 FROM personas ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Persona
	for rows.Next() {
		p, err := scanPersona(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePersona removes the record.
func (s *Store) DeletePersona(id string) error {
	res, err := s.db.Exec(`DELETE FROM personas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("persona %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func scanPersona(scan func(...any) error) (*domain.Persona, error) {
	var p domain.Persona
	var typ string
	var personaContext, usageFrequency, extra sql.NullString
	var techLevel sql.NullInt64
	err := scan(&p.ID, &p.Name, &typ, &p.Description, &p.Goal, &personaContext,
		&techLevel, &usageFrequency, &p.Emoji,
		&p.Metadata.CreatedAt, &p.Metadata.UpdatedAt, &extra)
	if err != nil {
		return nil, err
	}
	p.Type = domain.PersonaType(typ)
	p.Context = personaContext.String
	p.TechLevel = int(techLevel.Int64)
	p.UsageFrequency = usageFrequency.String
	if p.Extra, err = jsonMap(extra); err != nil {
		return nil, err
	}
	return &p, nil
}
