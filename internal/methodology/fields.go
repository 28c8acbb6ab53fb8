package methodology

import (
	"fmt"
	"sort"

	"mucm/internal/domain"
)

// Field is a resolved custom field plus the methodologies that declared
// it across the selected views.
type Field struct {
	FieldDef
	Methodologies []string
}

// FieldSet maps field name to its resolved definition.
type FieldSet map[string]Field

// Names returns the field names sorted for deterministic iteration.
func (fs FieldSet) Names() []string {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Required returns the sorted names of required fields.
func (fs FieldSet) Required() []string {
	var names []string
	for name, f := range fs {
		if f.Required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ResolveFields flattens the level's inheritance chain, parents first,
// and folds every level's custom fields into one set. A later level
// overrides an earlier one for the same field name; required is
// OR-merged so a field required anywhere stays required.
func ResolveFields(def *Definition, levelName string) (FieldSet, error) {
	level := def.Level(levelName)
	if level == nil {
		return nil, fmt.Errorf("%w: methodology %s has no level %q",
			domain.ErrValidation, def.Name, levelName)
	}
	out := FieldSet{}
	visited := map[string]bool{}
	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true
		l := def.Level(name)
		if l == nil {
			return fmt.Errorf("%w: methodology %s level %s inherits unknown level %s",
				domain.ErrValidation, def.Name, levelName, name)
		}
		for _, parent := range l.Inherits {
			if err := visit(parent); err != nil {
				return err
			}
		}
		for fname, fd := range l.CustomFields {
			merged := Field{FieldDef: fd, Methodologies: []string{def.Name}}
			if prior, ok := out[fname]; ok {
				merged.Required = merged.Required || prior.Required
			}
			out[fname] = merged
		}
		return nil
	}
	if err := visit(levelName); err != nil {
		return nil, err
	}
	return out, nil
}

// Collect unions the resolved field sets of every view. Fields shared
// between methodologies keep the union of contributing methodology
// names and the OR of required flags.
func (r *Registry) Collect(views []domain.MethodologyView) (FieldSet, error) {
	out := FieldSet{}
	for _, v := range views {
		def, _, err := r.ResolveView(v)
		if err != nil {
			return nil, err
		}
		set, err := ResolveFields(def, v.Level)
		if err != nil {
			return nil, err
		}
		for name, f := range set {
			if prior, ok := out[name]; ok {
				f.Required = f.Required || prior.Required
				f.Methodologies = mergeNames(prior.Methodologies, f.Methodologies)
			}
			out[name] = f
		}
	}
	return out, nil
}

// OrphanReport lists what the cleaner would remove from one use case.
type OrphanReport struct {
	// Methodologies with field values but no enabled view.
	Methodologies []string
	// Per enabled methodology, stored field names no level declares.
	Fields map[string][]string
}

// Empty reports whether nothing is orphaned.
func (o OrphanReport) Empty() bool {
	return len(o.Methodologies) == 0 && len(o.Fields) == 0
}

// Orphans computes the orphan set for one use case: whole methodology
// keys with no enabled view, plus individual fields no longer declared
// by any enabled level of their methodology.
func (r *Registry) Orphans(uc *domain.UseCase) (OrphanReport, error) {
	report := OrphanReport{Fields: map[string][]string{}}
	enabled := map[string][]domain.MethodologyView{}
	for _, v := range uc.EnabledViews() {
		enabled[v.Methodology] = append(enabled[v.Methodology], v)
	}
	for m, values := range uc.MethodologyFields {
		views, ok := enabled[m]
		if !ok {
			report.Methodologies = append(report.Methodologies, m)
			continue
		}
		known, err := r.Collect(views)
		if err != nil {
			return OrphanReport{}, err
		}
		var stray []string
		for fname := range values {
			if _, ok := known[fname]; !ok {
				stray = append(stray, fname)
			}
		}
		if len(stray) > 0 {
			sort.Strings(stray)
			report.Fields[m] = stray
		}
	}
	sort.Strings(report.Methodologies)
	if len(report.Fields) == 0 {
		report.Fields = nil
	}
	return report, nil
}

func mergeNames(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
