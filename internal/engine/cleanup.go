package engine

import (
	"fmt"
	"sort"
	"strings"

	"mucm/internal/domain"
)

// CleanupDetail records what was (or would be) removed from one use
// case.
type CleanupDetail struct {
	UseCaseID     string              `json:"use_case_id"`
	Methodologies []string            `json:"methodologies,omitempty"`
	Fields        map[string][]string `json:"fields,omitempty"`
}

// CleanupReport summarizes an orphaned-field sweep.
type CleanupReport struct {
	Examined int             `json:"examined"`
	Cleaned  int             `json:"cleaned"`
	DryRun   bool            `json:"dry_run"`
	Details  []CleanupDetail `json:"details,omitempty"`
}

// CleanupFields removes methodology field data no enabled view can
// display. With useCaseID empty the whole store is swept. With dryRun
// set nothing is written; the report shows what a real run would
// remove.
func (e *Engine) CleanupFields(useCaseID string, dryRun bool) (*CleanupReport, error) {
	var ucs []*domain.UseCase
	if useCaseID != "" {
		uc, err := e.Store.LoadByID(useCaseID)
		if err != nil {
			return nil, err
		}
		ucs = append(ucs, uc)
	} else {
		all, err := e.Store.LoadAll()
		if err != nil {
			return nil, err
		}
		ucs = all
	}

	report := &CleanupReport{Examined: len(ucs), DryRun: dryRun}
	for _, uc := range ucs {
		orphans, err := e.Registry.Orphans(uc)
		if err != nil {
			return nil, err
		}
		if orphans.Empty() {
			continue
		}
		report.Cleaned++
		report.Details = append(report.Details, CleanupDetail{
			UseCaseID:     uc.ID,
			Methodologies: orphans.Methodologies,
			Fields:        orphans.Fields,
		})
		if dryRun {
			continue
		}
		for _, m := range orphans.Methodologies {
			delete(uc.MethodologyFields, m)
		}
		for m, fields := range orphans.Fields {
			for _, f := range fields {
				delete(uc.MethodologyFields[m], f)
			}
		}
		if err := e.Store.Save(uc); err != nil {
			return nil, err
		}
	}
	sort.Slice(report.Details, func(i, j int) bool {
		return report.Details[i].UseCaseID < report.Details[j].UseCaseID
	})
	return report, nil
}

// Lint reports dangling cross references as warnings. References are
// advisory, so a dangling target never fails an operation.
func (e *Engine) Lint() ([]string, error) {
	all, err := e.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	ids := map[string]bool{}
	scenarioIDs := map[string]bool{}
	for _, uc := range all {
		ids[uc.ID] = true
		for _, sc := range uc.Scenarios {
			scenarioIDs[sc.ID] = true
		}
	}

	var warnings []string
	checkCondition := func(owner string, c domain.Condition) {
		if !c.HasReference() {
			return
		}
		known := ids[c.TargetID] || scenarioIDs[c.TargetID]
		if !known {
			warnings = append(warnings, fmt.Sprintf("%s: condition %q targets %s which does not exist", owner, c.Text, c.TargetID))
		}
	}
	for _, uc := range all {
		for _, c := range uc.Preconditions {
			checkCondition(uc.ID, c)
		}
		for _, c := range uc.Postconditions {
			checkCondition(uc.ID, c)
		}
		for _, ref := range uc.References {
			if !ids[ref.TargetID] {
				warnings = append(warnings, fmt.Sprintf("%s: reference %s (%s) targets a use case that does not exist", uc.ID, ref.TargetID, ref.Relationship))
			}
		}
		for _, sc := range uc.Scenarios {
			for _, ref := range sc.References {
				known := ids[ref.TargetID] || scenarioIDs[ref.TargetID]
				if !known {
					warnings = append(warnings, fmt.Sprintf("%s: reference %s (%s) targets nothing in this project", sc.ID, ref.TargetID, ref.Relationship))
				}
			}
			if sc.Persona != "" {
				if _, err := e.Store.LoadPersona(sc.Persona); err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: persona %q is not defined", sc.ID, sc.Persona))
				}
			}
		}
	}
	sort.Slice(warnings, func(i, j int) bool {
		return strings.Compare(warnings[i], warnings[j]) < 0
	})
	return warnings, nil
}
