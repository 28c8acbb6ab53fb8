// Package engine is the application service layer: it owns mutation of
// use case aggregates and coordinates the methodology registry, the
// store, and the generators.
package engine

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"mucm/internal/config"
	"mucm/internal/domain"
	"mucm/internal/generate"
	"mucm/internal/methodology"
	"mucm/internal/project"
	"mucm/internal/sqlitestore"
	"mucm/internal/store"
	"mucm/internal/tomlstore"
)

// Engine executes the use case operations behind the CLI.
type Engine struct {
	Store    store.Store
	Registry *methodology.Registry
	Gen      *generate.Generator
	Config   *config.Config
	Root     string

	Now func() time.Time
}

// OpenStore selects the storage backend. A relational store already on
// disk is authoritative even when the config names the flat-file
// backend, so a migrated project never splits in two.
func OpenStore(root string, cfg *config.Config) (store.Store, error) {
	useSQLite := cfg.Templates.StorageBackend == config.BackendSQLite
	if !useSQLite {
		if _, err := os.Stat(sqlitestore.Path(root)); err == nil {
			useSQLite = true
		}
	}
	if useSQLite {
		return sqlitestore.Open(root, cfg)
	}
	return tomlstore.New(root, cfg), nil
}

// New wires an engine from explicit parts.
func New(root string, cfg *config.Config, st store.Store, reg *methodology.Registry) (*Engine, error) {
	gen, err := generate.New(root, cfg, reg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Store:    st,
		Registry: reg,
		Gen:      gen,
		Config:   cfg,
		Root:     root,
		Now:      time.Now,
	}, nil
}

// Open builds the engine for an initialized project root.
func Open(root string) (*Engine, error) {
	cfg, err := project.Require(root)
	if err != nil {
		return nil, err
	}
	reg, err := methodology.NewRegistry()
	if err != nil {
		return nil, err
	}
	if err := reg.LoadOverrides(config.MethodologyDir(root)); err != nil {
		return nil, err
	}
	st, err := OpenStore(root, cfg)
	if err != nil {
		return nil, err
	}
	return New(root, cfg, st, reg)
}

func (e *Engine) Close() error { return e.Store.Close() }

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CreateOptions are the inputs for a new use case.
type CreateOptions struct {
	Title       string
	Category    string
	Description string
	Priority    string
	// Views are "methodology:level" selectors. Empty means the project
	// default view.
	Views []string
	// FieldValues is keyed by methodology then field name.
	FieldValues map[string]map[string]any
}

// CreateUseCase validates the inputs, allocates the next ID in the
// category, persists the aggregate, and renders its artifacts.
func (e *Engine) CreateUseCase(opts CreateOptions) (*domain.UseCase, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(opts.Category) == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	priority := domain.PriorityMedium
	if opts.Priority != "" {
		var err error
		if priority, err = domain.ParsePriority(opts.Priority); err != nil {
			return nil, err
		}
	}
	views, err := e.resolveViews(opts.Views)
	if err != nil {
		return nil, err
	}

	onDisk, err := e.Store.ExistingIDs()
	if err != nil {
		return nil, err
	}
	id, err := domain.NextUseCaseID(opts.Category, nil, onDisk)
	if err != nil {
		return nil, err
	}

	uc := &domain.UseCase{
		ID:                id,
		Title:             opts.Title,
		Category:          opts.Category,
		Description:       opts.Description,
		Priority:          priority,
		Views:             views,
		MethodologyFields: map[string]map[string]any{},
		Metadata:          domain.NewMetadata(e.now()),
	}
	for _, v := range views {
		values := opts.FieldValues[v.Methodology]
		if values == nil {
			values = map[string]any{}
		}
		uc.MethodologyFields[v.Methodology] = values
	}
	if err := uc.Validate(); err != nil {
		return nil, err
	}
	if err := e.Store.Save(uc); err != nil {
		return nil, err
	}
	if err := e.renderUseCase(uc); err != nil {
		return nil, err
	}
	return uc, e.refreshOverview()
}

// resolveViews parses "methodology:level" selectors. An empty selector
// list falls back to the configured default methodology at its first
// level.
func (e *Engine) resolveViews(selectors []string) ([]domain.MethodologyView, error) {
	if len(selectors) == 0 {
		name := e.Config.Templates.DefaultMethodology
		if name == "" && len(e.Config.Templates.Methodologies) > 0 {
			name = e.Config.Templates.Methodologies[0]
		}
		def, ok := e.Registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: default methodology %q is not defined", domain.ErrValidation, name)
		}
		return []domain.MethodologyView{domain.NewView(name, def.Levels[0].Name)}, nil
	}
	var views []domain.MethodologyView
	seen := map[string]bool{}
	for _, sel := range selectors {
		name, level, _ := strings.Cut(sel, ":")
		def, ok := e.Registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown methodology %q", domain.ErrValidation, name)
		}
		if level == "" {
			level = def.Levels[0].Name
		}
		v := domain.NewView(name, level)
		if _, _, err := e.Registry.ResolveView(v); err != nil {
			return nil, err
		}
		if seen[v.Key()] {
			return nil, fmt.Errorf("view %s: %w", v.Key(), store.ErrConflict)
		}
		seen[v.Key()] = true
		views = append(views, v)
	}
	return views, nil
}

// Get loads one use case.
func (e *Engine) Get(id string) (*domain.UseCase, error) {
	return e.Store.LoadByID(id)
}

// List returns every use case ordered by ID.
func (e *Engine) List() ([]*domain.UseCase, error) {
	return e.Store.LoadAll()
}

// Delete removes a use case and its rendered artifacts, then refreshes
// the overview. Test skeletons are kept; they may hold user code.
func (e *Engine) Delete(id string) error {
	if err := e.Store.Delete(id); err != nil {
		return err
	}
	return e.refreshOverview()
}

// ScenarioStepInput is one step of a new scenario.
type ScenarioStepInput struct {
	Actor       string
	Receiver    string
	Action      string
	Description string
	Notes       string
}

// ScenarioOptions are the inputs for a new scenario.
type ScenarioOptions struct {
	Title       string
	Description string
	Type        string
	Persona     string
	Steps       []ScenarioStepInput
}

// AddScenario appends a scenario with the next sequential ID and
// re-renders the use case.
func (e *Engine) AddScenario(useCaseID string, opts ScenarioOptions) (*domain.Scenario, error) {
	uc, err := e.Store.LoadByID(useCaseID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("%w: scenario title is required", domain.ErrValidation)
	}
	scType := domain.ScenarioHappyPath
	if opts.Type != "" {
		if scType, err = domain.ParseScenarioType(opts.Type); err != nil {
			return nil, err
		}
	}
	if opts.Persona != "" && !domain.ValidPersonaID(opts.Persona) {
		return nil, fmt.Errorf("%w: persona id %q is malformed", domain.ErrValidation, opts.Persona)
	}
	sc := domain.Scenario{
		ID:          uc.NextScenarioID(),
		Title:       opts.Title,
		Description: opts.Description,
		Type:        scType,
		Status:      domain.StatusPlanned,
		Persona:     opts.Persona,
		Metadata:    domain.NewMetadata(e.now()),
	}
	for i, in := range opts.Steps {
		if strings.TrimSpace(in.Action) == "" {
			return nil, fmt.Errorf("%w: step %d of %s has no action", domain.ErrValidation, i+1, sc.ID)
		}
		sc.AddStep(domain.ScenarioStep{
			Order:       i + 1,
			Actor:       domain.ParseActor(in.Actor),
			Receiver:    in.Receiver,
			Action:      in.Action,
			Description: in.Description,
			Notes:       in.Notes,
		})
	}
	if err := sc.ValidateSteps(); err != nil {
		return nil, err
	}
	uc.AddScenario(sc)
	if err := e.Store.Save(uc); err != nil {
		return nil, err
	}
	if err := e.renderUseCase(uc); err != nil {
		return nil, err
	}
	return uc.Scenario(sc.ID), e.refreshOverview()
}

// UpdateScenarioStatus sets one scenario's status. The parent use case
// follows from the scenario ID.
func (e *Engine) UpdateScenarioStatus(scenarioID, status string) (*domain.UseCase, error) {
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if !domain.ValidScenarioID(scenarioID) {
		return nil, fmt.Errorf("%w: scenario id %q is malformed", domain.ErrValidation, scenarioID)
	}
	useCaseID := scenarioID[:strings.LastIndex(scenarioID, "-S")]
	uc, err := e.Store.LoadByID(useCaseID)
	if err != nil {
		return nil, err
	}
	if !uc.UpdateScenarioStatus(scenarioID, parsed) {
		return nil, fmt.Errorf("scenario %s: %w", scenarioID, store.ErrNotFound)
	}
	if err := e.Store.Save(uc); err != nil {
		return nil, err
	}
	if err := e.renderUseCase(uc); err != nil {
		return nil, err
	}
	return uc, e.refreshOverview()
}

// Regenerate re-renders artifacts for the given IDs, or for the whole
// store when none are given, then refreshes the overview.
func (e *Engine) Regenerate(ids ...string) error {
	var ucs []*domain.UseCase
	if len(ids) == 0 {
		all, err := e.Store.LoadAll()
		if err != nil {
			return err
		}
		ucs = all
	} else {
		for _, id := range ids {
			uc, err := e.Store.LoadByID(id)
			if err != nil {
				return err
			}
			ucs = append(ucs, uc)
		}
	}
	for _, uc := range ucs {
		if err := e.renderUseCase(uc); err != nil {
			return err
		}
	}
	return e.refreshOverview()
}

func (e *Engine) renderUseCase(uc *domain.UseCase) error {
	artifacts, err := e.Gen.Materialize(uc)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := e.Store.SaveRendered(uc.ID, a.Name, a.Content); err != nil {
			return err
		}
	}
	if e.Config.Generation.AutoGenerateTests {
		if _, err := e.Gen.WriteTestSkeleton(uc, e.Config.TestLanguage()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) refreshOverview() error {
	all, err := e.Store.LoadAll()
	if err != nil {
		return err
	}
	_, err = e.Gen.WriteOverview(all)
	return err
}

// StatusSummary is one row of the project status report.
type StatusSummary struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Category  string        `json:"category"`
	Priority  string        `json:"priority"`
	Status    domain.Status `json:"status"`
	Scenarios int           `json:"scenarios"`
}

// Status reports the aggregate status of every use case, sorted by ID.
func (e *Engine) Status() ([]StatusSummary, error) {
	all, err := e.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	out := make([]StatusSummary, 0, len(all))
	for _, uc := range all {
		out = append(out, StatusSummary{
			ID:        uc.ID,
			Title:     uc.Title,
			Category:  uc.Category,
			Priority:  string(uc.Priority),
			Status:    uc.AggregateStatus(),
			Scenarios: len(uc.Scenarios),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
