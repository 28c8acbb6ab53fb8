package engine

import (
	"fmt"
	"sort"

	"mucm/internal/domain"
)

// PersonaOptions are the inputs for a new persona.
type PersonaOptions struct {
	ID             string
	Name           string
	Type           string
	Description    string
	Goal           string
	Context        string
	TechLevel      int
	UsageFrequency string
	Emoji          string
}

// CreatePersona registers a persona and writes its documentation page.
func (e *Engine) CreatePersona(opts PersonaOptions) (*domain.Persona, error) {
	p, err := domain.NewPersona(opts.ID, opts.Name, opts.Goal, domain.ParsePersonaType(opts.Type), e.now())
	if err != nil {
		return nil, err
	}
	p.Description = opts.Description
	p.Context = opts.Context
	p.TechLevel = opts.TechLevel
	p.UsageFrequency = opts.UsageFrequency
	if opts.Emoji != "" {
		p.Emoji = opts.Emoji
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := e.Store.SavePersona(p); err != nil {
		return nil, err
	}
	if _, err := e.Gen.WritePersonaPage(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPersonas returns every persona sorted by ID.
func (e *Engine) ListPersonas() ([]*domain.Persona, error) {
	all, err := e.Store.LoadAllPersonas()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// DeletePersona removes a persona. Scenarios still naming it keep the
// reference; the lint surfaces it afterwards.
func (e *Engine) DeletePersona(id string) error {
	if !domain.ValidPersonaID(id) {
		return fmt.Errorf("%w: persona id %q is malformed", domain.ErrValidation, id)
	}
	return e.Store.DeletePersona(id)
}
