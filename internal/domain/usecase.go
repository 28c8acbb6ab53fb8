package domain

import "fmt"

// UseCase is the root aggregate: a named capability with its scenarios,
// conditions, references, and enabled documentation views.
type UseCase struct {
	ID          string   `toml:"id" json:"id"`
	Title       string   `toml:"title" json:"title"`
	Category    string   `toml:"category" json:"category"`
	Description string   `toml:"description" json:"description"`
	Priority    Priority `toml:"priority" json:"priority"`

	Scenarios      []Scenario         `toml:"scenarios,omitempty" json:"scenarios,omitempty"`
	Preconditions  []Condition        `toml:"preconditions,omitempty" json:"preconditions,omitempty"`
	Postconditions []Condition        `toml:"postconditions,omitempty" json:"postconditions,omitempty"`
	References     []UseCaseReference `toml:"references,omitempty" json:"references,omitempty"`
	Views          []MethodologyView  `toml:"views,omitempty" json:"views,omitempty"`

	// MethodologyFields holds the collected custom field values, keyed
	// by methodology then field name.
	MethodologyFields map[string]map[string]any `toml:"methodology_fields,omitempty" json:"methodology_fields,omitempty"`

	Metadata Metadata `toml:"metadata" json:"metadata"`

	// Extra preserves fields written by newer tool versions.
	Extra map[string]any `toml:"-" json:"-"`
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Validate checks the aggregate's own invariants: ID shapes, enum
// values, step ordering, and condition references. Registry-dependent
// checks (view methodology/level existence) live in the engine.
func (u *UseCase) Validate() error {
	if !useCaseIDRe.MatchString(u.ID) {
		return validationf("use case id %q does not match UC-<PREFIX>-<NNN>", u.ID)
	}
	if u.Title == "" {
		return validationf("use case %s: title is required", u.ID)
	}
	if u.Category == "" {
		return validationf("use case %s: category is required", u.ID)
	}
	if !u.Priority.Valid() {
		return validationf("use case %s: invalid priority %q", u.ID, u.Priority)
	}
	seenScenario := map[string]bool{}
	for i := range u.Scenarios {
		s := &u.Scenarios[i]
		if !scenarioIDBelongs(u.ID, s.ID) {
			return validationf("scenario id %q does not belong to %s", s.ID, u.ID)
		}
		if seenScenario[s.ID] {
			return validationf("duplicate scenario id %q", s.ID)
		}
		seenScenario[s.ID] = true
		if !s.Type.Valid() {
			return validationf("scenario %s: invalid type %q", s.ID, s.Type)
		}
		if !s.Status.Valid() {
			return validationf("scenario %s: invalid status %q", s.ID, s.Status)
		}
		if err := s.ValidateSteps(); err != nil {
			return err
		}
	}
	seenView := map[string]bool{}
	for _, v := range u.Views {
		if seenView[v.Key()] {
			return validationf("use case %s: duplicate view %s", u.ID, v.Key())
		}
		seenView[v.Key()] = true
	}
	for _, c := range append(append([]Condition{}, u.Preconditions...), u.Postconditions...) {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AddScenario appends the scenario and touches metadata.
func (u *UseCase) AddScenario(s Scenario) {
	u.Scenarios = append(u.Scenarios, s)
	u.Metadata.Touch()
}

// Scenario returns the scenario with the given id, or nil.
func (u *UseCase) Scenario(id string) *Scenario {
	for i := range u.Scenarios {
		if u.Scenarios[i].ID == id {
			return &u.Scenarios[i]
		}
	}
	return nil
}

// UpdateScenarioStatus sets the status of one scenario and touches both
// metadata records. Returns false when the scenario does not exist.
func (u *UseCase) UpdateScenarioStatus(scenarioID string, status Status) bool {
	s := u.Scenario(scenarioID)
	if s == nil {
		return false
	}
	s.SetStatus(status)
	u.Metadata.Touch()
	return true
}

// AddView registers a view; a duplicate key is rejected.
func (u *UseCase) AddView(v MethodologyView) error {
	for _, existing := range u.Views {
		if existing.Key() == v.Key() {
			return validationf("use case %s: view %s already present", u.ID, v.Key())
		}
	}
	u.Views = append(u.Views, v)
	u.Metadata.Touch()
	return nil
}

// EnabledViews returns the views with Enabled set, in declaration order.
func (u *UseCase) EnabledViews() []MethodologyView {
	var out []MethodologyView
	for _, v := range u.Views {
		if v.Enabled {
			out = append(out, v)
		}
	}
	return out
}

// EnabledMethodologies returns the distinct methodologies across enabled
// views.
func (u *UseCase) EnabledMethodologies() map[string]bool {
	out := map[string]bool{}
	for _, v := range u.EnabledViews() {
		out[v.Methodology] = true
	}
	return out
}

// AggregateStatus computes the use case status from its scenarios.
func (u *UseCase) AggregateStatus() Status {
	statuses := make([]Status, len(u.Scenarios))
	for i, s := range u.Scenarios {
		statuses[i] = s.Status
	}
	return AggregateStatus(statuses)
}

// EffectivePreconditions concatenates use-case conditions with the
// scenario's own, use-case level first.
func (u *UseCase) EffectivePreconditions(s *Scenario) []string {
	var all []string
	for _, c := range u.Preconditions {
		all = append(all, c.Text)
	}
	return append(all, s.Preconditions...)
}

// EffectivePostconditions mirrors EffectivePreconditions.
func (u *UseCase) EffectivePostconditions(s *Scenario) []string {
	var all []string
	for _, c := range u.Postconditions {
		all = append(all, c.Text)
	}
	return append(all, s.Postconditions...)
}
