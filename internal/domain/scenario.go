package domain

import "sort"

// ScenarioStep is a single atomic action inside a scenario flow.
type ScenarioStep struct {
	Order       int    `toml:"order" json:"order"`
	Actor       Actor  `toml:"actor" json:"actor"`
	Receiver    string `toml:"receiver,omitempty" json:"receiver,omitempty"`
	Action      string `toml:"action" json:"action"`
	Description string `toml:"description" json:"description"`
	Notes       string `toml:"notes,omitempty" json:"notes,omitempty"`
}

// Scenario is an ordered flow of steps owned by a use case.
type Scenario struct {
	ID          string       `toml:"id" json:"id"`
	Title       string       `toml:"title" json:"title"`
	Description string       `toml:"description" json:"description"`
	Type        ScenarioType `toml:"type" json:"type"`
	Status      Status       `toml:"status" json:"status"`
	Persona     string       `toml:"persona,omitempty" json:"persona,omitempty"`
	Metadata    Metadata     `toml:"metadata" json:"metadata"`

	Steps []ScenarioStep `toml:"steps,omitempty" json:"steps,omitempty"`

	// Scenario-local conditions, in addition to the use-case level ones.
	Preconditions  []string `toml:"preconditions,omitempty" json:"preconditions,omitempty"`
	Postconditions []string `toml:"postconditions,omitempty" json:"postconditions,omitempty"`

	References []ScenarioReference `toml:"references,omitempty" json:"references,omitempty"`

	// Extra preserves fields this tool version does not know about.
	Extra map[string]any `toml:"-" json:"-"`
}

// AddStep inserts the step and keeps the slice ordered by step order.
func (s *Scenario) AddStep(step ScenarioStep) {
	s.Steps = append(s.Steps, step)
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].Order < s.Steps[j].Order })
	s.Metadata.Touch()
}

// RemoveStep drops the step with the given order, if present.
func (s *Scenario) RemoveStep(order int) {
	kept := s.Steps[:0]
	for _, st := range s.Steps {
		if st.Order != order {
			kept = append(kept, st)
		}
	}
	s.Steps = kept
	s.Metadata.Touch()
}

// ValidateSteps enforces that step orders are exactly 1..N with no gaps
// or duplicates.
func (s *Scenario) ValidateSteps() error {
	seen := make(map[int]bool, len(s.Steps))
	for _, st := range s.Steps {
		if st.Order < 1 || st.Order > len(s.Steps) || seen[st.Order] {
			return validationf("scenario %s: step orders must be 1..%d with no gaps or duplicates", s.ID, len(s.Steps))
		}
		seen[st.Order] = true
	}
	return nil
}

func (s *Scenario) AddPrecondition(text string) {
	for _, c := range s.Preconditions {
		if c == text {
			return
		}
	}
	s.Preconditions = append(s.Preconditions, text)
	s.Metadata.Touch()
}

func (s *Scenario) AddPostcondition(text string) {
	for _, c := range s.Postconditions {
		if c == text {
			return
		}
	}
	s.Postconditions = append(s.Postconditions, text)
	s.Metadata.Touch()
}

// AddReference appends the reference unless an identical one exists.
func (s *Scenario) AddReference(ref ScenarioReference) {
	for _, r := range s.References {
		if r.RefType == ref.RefType && r.TargetID == ref.TargetID && r.Relationship == ref.Relationship {
			return
		}
	}
	s.References = append(s.References, ref)
	s.Metadata.Touch()
}

func (s *Scenario) RemoveReference(targetID, relationship string) {
	kept := s.References[:0]
	for _, r := range s.References {
		if !(r.TargetID == targetID && r.Relationship == relationship) {
			kept = append(kept, r)
		}
	}
	s.References = kept
	s.Metadata.Touch()
}

func (s *Scenario) SetStatus(status Status) {
	s.Status = status
	s.Metadata.Touch()
}

// Actors returns the deduplicated actors appearing in the steps, in
// first-seen order.
func (s *Scenario) Actors() []Actor {
	seen := map[string]bool{}
	var out []Actor
	for _, st := range s.Steps {
		name := st.Actor.Name()
		if !seen[name] {
			seen[name] = true
			out = append(out, st.Actor)
		}
	}
	return out
}

// DependsOnUseCase reports whether the scenario carries a dependency
// reference to the given use case.
func (s *Scenario) DependsOnUseCase(useCaseID string) bool {
	for _, r := range s.References {
		if r.RefType == RefUseCase && r.TargetID == useCaseID && r.IsDependency() {
			return true
		}
	}
	return false
}
