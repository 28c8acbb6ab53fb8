package engine_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mucm/internal/domain"
	"mucm/internal/engine"
	"mucm/internal/project"
	"mucm/internal/store"
)

type testEnv struct {
	Engine *engine.Engine
	Root   string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	if _, err := project.Init(root, project.Options{Name: "shop"}); err != nil {
		t.Fatalf("init project: %v", err)
	}
	eng, err := engine.Open(root)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { eng.Close() })
	return testEnv{Engine: eng, Root: root}
}

func (env testEnv) readFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(env.Root, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestCreateUseCaseAllocatesSequentialIDs(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if first.ID != "UC-SEC-001" {
		t.Fatalf("first id = %s", first.ID)
	}
	second, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password reset", Category: "Security"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID != "UC-SEC-002" {
		t.Fatalf("second id = %s", second.ID)
	}
	if first.Priority != domain.PriorityMedium {
		t.Fatalf("default priority = %s", first.Priority)
	}
	if first.Metadata.CreatedAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("created_at = %s", first.Metadata.CreatedAt)
	}
}

func TestCreateUseCaseDefaultView(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	if len(uc.Views) != 1 || uc.Views[0].Key() != "business-simple" {
		t.Fatalf("views = %+v", uc.Views)
	}
	if _, ok := uc.MethodologyFields["business"]; !ok {
		t.Fatalf("expected business field bucket, got %v", uc.MethodologyFields)
	}
	// document, view artifact, test skeleton and overview all written
	for _, rel := range []string{
		"docs/use-cases/security/UC-SEC-001.toml",
		"docs/use-cases/security/UC-SEC-001-business-s.md",
		"tests/use-cases/security/uc_sec_001.py",
		"docs/use-cases/README.md",
	} {
		if _, err := os.Stat(filepath.Join(env.Root, rel)); err != nil {
			t.Fatalf("missing %s: %v", rel, err)
		}
	}
}

func TestCreateUseCaseExplicitViews(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{
		Title:    "Password login",
		Category: "Security",
		Views:    []string{"business:simple", "feature:normal"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(uc.Views); got != 2 {
		t.Fatalf("view count = %d", got)
	}
	for _, rel := range []string{
		"docs/use-cases/security/UC-SEC-001-business-s.md",
		"docs/use-cases/security/UC-SEC-001-feature-n.md",
	} {
		if _, err := os.Stat(filepath.Join(env.Root, rel)); err != nil {
			t.Fatalf("missing %s: %v", rel, err)
		}
	}

	if _, err := env.Engine.CreateUseCase(engine.CreateOptions{
		Title: "Bad", Category: "Security", Views: []string{"kanban:simple"},
	}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown methodology: %v", err)
	}
	if _, err := env.Engine.CreateUseCase(engine.CreateOptions{
		Title: "Bad", Category: "Security", Views: []string{"business:simple", "business:simple"},
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate view: %v", err)
	}
}

func TestCreateUseCaseRequiresTitleAndCategory(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateUseCase(engine.CreateOptions{Category: "Security"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing title: %v", err)
	}
	if _, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing category: %v", err)
	}
}

func TestAddScenarioAndUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	sc, err := env.Engine.AddScenario(uc.ID, engine.ScenarioOptions{
		Title: "Successful login",
		Steps: []engine.ScenarioStepInput{
			{Actor: "User", Action: "submit credentials"},
			{Actor: "System", Action: "verify password"},
		},
	})
	if err != nil {
		t.Fatalf("add scenario: %v", err)
	}
	if sc.ID != "UC-SEC-001-S01" {
		t.Fatalf("scenario id = %s", sc.ID)
	}
	if sc.Status != domain.StatusPlanned || sc.Type != domain.ScenarioHappyPath {
		t.Fatalf("defaults: %s %s", sc.Status, sc.Type)
	}
	if len(sc.Steps) != 2 || sc.Steps[1].Order != 2 {
		t.Fatalf("steps = %+v", sc.Steps)
	}

	sc2, err := env.Engine.AddScenario(uc.ID, engine.ScenarioOptions{Title: "Wrong password", Type: "exception_flow"})
	if err != nil {
		t.Fatal(err)
	}
	if sc2.ID != "UC-SEC-001-S02" {
		t.Fatalf("second scenario id = %s", sc2.ID)
	}

	updated, err := env.Engine.UpdateScenarioStatus("UC-SEC-001-S01", "implemented")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got := updated.Scenario("UC-SEC-001-S01").Status; got != domain.StatusImplemented {
		t.Fatalf("status = %s", got)
	}
	if got := updated.AggregateStatus(); got != domain.StatusImplemented {
		t.Fatalf("aggregate = %s", got)
	}

	if _, err := env.Engine.UpdateScenarioStatus("UC-SEC-001-S09", "tested"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown scenario: %v", err)
	}
	if _, err := env.Engine.UpdateScenarioStatus("UC-SEC-001-S01", "shipped"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown status: %v", err)
	}
}

func TestStatusReport(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddScenario(uc.ID, engine.ScenarioOptions{Title: "Login"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Pay invoice", Category: "Billing", Priority: "high"}); err != nil {
		t.Fatal(err)
	}
	rows, err := env.Engine.Status()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != "UC-BIL-001" || rows[1].ID != "UC-SEC-001" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[1].Scenarios != 1 || rows[1].Status != domain.StatusPlanned {
		t.Fatalf("security row = %+v", rows[1])
	}
	if rows[0].Priority != "high" {
		t.Fatalf("billing priority = %s", rows[0].Priority)
	}
}

func TestCleanupFields(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{
		Title:    "Password login",
		Category: "Security",
		Views:    []string{"business:normal"},
		FieldValues: map[string]map[string]any{
			"business": {"business_value": "keeps accounts safe"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	uc.MethodologyFields["developer"] = map[string]any{"x": int64(1)}
	if err := env.Engine.Store.Save(uc); err != nil {
		t.Fatal(err)
	}

	report, err := env.Engine.CleanupFields("", true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if report.Examined != 1 || report.Cleaned != 1 || !report.DryRun {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Details) != 1 || report.Details[0].UseCaseID != uc.ID {
		t.Fatalf("details = %+v", report.Details)
	}
	if got := report.Details[0].Methodologies; len(got) != 1 || got[0] != "developer" {
		t.Fatalf("orphan methodologies = %v", got)
	}
	stored, err := env.Engine.Get(uc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stored.MethodologyFields["developer"]; !ok {
		t.Fatalf("dry run must not mutate, fields = %v", stored.MethodologyFields)
	}

	if _, err := env.Engine.CleanupFields(uc.ID, false); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	stored, err = env.Engine.Get(uc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stored.MethodologyFields["developer"]; ok {
		t.Fatalf("developer fields should be gone, got %v", stored.MethodologyFields)
	}
	if _, ok := stored.MethodologyFields["business"]; !ok {
		t.Fatalf("business fields must survive, got %v", stored.MethodologyFields)
	}

	clean, err := env.Engine.CleanupFields("", false)
	if err != nil {
		t.Fatal(err)
	}
	if clean.Cleaned != 0 || len(clean.Details) != 0 {
		t.Fatalf("second sweep should be a no-op: %+v", clean)
	}
}

func TestLintReportsDanglingReferences(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddScenario(uc.ID, engine.ScenarioOptions{Title: "Login", Persona: "ghost"}); err != nil {
		t.Fatal(err)
	}
	stored, err := env.Engine.Get(uc.ID)
	if err != nil {
		t.Fatal(err)
	}
	stored.References = append(stored.References, domain.UseCaseReference{
		TargetID:     "UC-PAY-001",
		Relationship: domain.RelDependsOn,
	})
	if err := env.Engine.Store.Save(stored); err != nil {
		t.Fatal(err)
	}

	warnings, err := env.Engine.Lint()
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v", warnings)
	}
	joined := strings.Join(warnings, "\n")
	if !strings.Contains(joined, "UC-PAY-001") || !strings.Contains(joined, `persona "ghost"`) {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestRegenerateAll(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	artifact := filepath.Join(env.Root, "docs/use-cases/security/UC-SEC-001-business-s.md")
	if err := os.Remove(artifact); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.Regenerate(); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("artifact not rebuilt: %v", err)
	}
	overview := env.readFile(t, "docs/use-cases/README.md")
	if !strings.Contains(overview, uc.ID) || !strings.Contains(overview, "Password login") {
		t.Fatalf("overview = %q", overview)
	}
	if err := env.Engine.Regenerate("UC-SEC-999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestDeleteUseCase(t *testing.T) {
	env := newTestEnv(t)
	uc, err := env.Engine.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.Delete(uc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Get(uc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.Root, "docs/use-cases/security/UC-SEC-001-business-s.md")); !os.IsNotExist(err) {
		t.Fatalf("artifact should be gone: %v", err)
	}
}

func TestPersonaLifecycle(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreatePersona(engine.PersonaOptions{
		ID:          "support-agent",
		Goal:        "Resolve customer tickets fast",
		Description: "Handles tickets",
		TechLevel:   2,
	})
	if err != nil {
		t.Fatalf("create persona: %v", err)
	}
	if p.Name != "Support Agent" || p.Emoji != "🎧" {
		t.Fatalf("persona = %+v", p)
	}
	page := env.readFile(t, "docs/personas/support-agent.md")
	if !strings.Contains(page, "Support Agent") || !strings.Contains(page, "Resolve customer tickets fast") {
		t.Fatalf("page = %q", page)
	}
	if _, err := env.Engine.CreatePersona(engine.PersonaOptions{ID: "no-goal"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing goal: %v", err)
	}
	all, err := env.Engine.ListPersonas()
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v %v", all, err)
	}
	if err := env.Engine.DeletePersona("support-agent"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.Engine.DeletePersona("Bad ID"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad id: %v", err)
	}
}

func TestOpenStoreSelectsBackend(t *testing.T) {
	root := t.TempDir()
	cfg, err := project.Init(root, project.Options{Name: "shop"})
	if err != nil {
		t.Fatal(err)
	}
	st, err := engine.OpenStore(root, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if st.Backend() != "toml" {
		t.Fatalf("backend = %s", st.Backend())
	}
	st.Close()

	sqliteRoot := t.TempDir()
	cfg2, err := project.Init(sqliteRoot, project.Options{Name: "shop", StorageBackend: "sqlite"})
	if err != nil {
		t.Fatal(err)
	}
	st2, err := engine.OpenStore(sqliteRoot, cfg2)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	if st2.Backend() != "sqlite" {
		t.Fatalf("backend = %s", st2.Backend())
	}

	// a database already on disk wins over a toml config
	cfg2.Templates.StorageBackend = "toml"
	st3, err := engine.OpenStore(sqliteRoot, cfg2)
	if err != nil {
		t.Fatal(err)
	}
	defer st3.Close()
	if st3.Backend() != "sqlite" {
		t.Fatalf("existing db must win, backend = %s", st3.Backend())
	}
}

func TestEngineOnSQLiteBackend(t *testing.T) {
	root := t.TempDir()
	if _, err := project.Init(root, project.Options{Name: "shop", StorageBackend: "sqlite"}); err != nil {
		t.Fatal(err)
	}
	eng, err := engine.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	uc, err := eng.CreateUseCase(engine.CreateOptions{Title: "Password login", Category: "Security"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.AddScenario(uc.ID, engine.ScenarioOptions{Title: "Login", Steps: []engine.ScenarioStepInput{{Actor: "User", Action: "log in"}}}); err != nil {
		t.Fatal(err)
	}
	stored, err := eng.Get(uc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Scenarios) != 1 || stored.Scenarios[0].ID != "UC-SEC-001-S01" {
		t.Fatalf("scenarios = %+v", stored.Scenarios)
	}
	// the relational backend mirrors rendered artifacts to the docs tree
	if _, err := os.Stat(filepath.Join(root, "docs/use-cases/security/UC-SEC-001-business-s.md")); err != nil {
		t.Fatalf("mirrored artifact missing: %v", err)
	}
}
