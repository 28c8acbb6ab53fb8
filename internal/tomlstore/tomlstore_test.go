package tomlstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mucm/internal/config"
	"mucm/internal/domain"
	"mucm/internal/store"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	return New(root, config.Default("test")), root
}

func sampleUseCase(t *testing.T) *domain.UseCase {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	uc := &domain.UseCase{
		ID:       "UC-SEC-001",
		Title:    "Password login",
		Category: "Security",
		Priority: domain.PriorityHigh,
		Views:    []domain.MethodologyView{domain.NewView("business", "simple")},
		MethodologyFields: map[string]map[string]any{
			"business": {"business_value": "fewer support tickets"},
		},
		Metadata: domain.NewMetadata(now),
	}
	uc.Scenarios = []domain.Scenario{{
		ID:       "UC-SEC-001-S01",
		Title:    "Valid credentials",
		Type:     domain.ScenarioHappyPath,
		Status:   domain.StatusPlanned,
		Persona:  "registered-user",
		Metadata: domain.NewMetadata(now),
		Steps: []domain.ScenarioStep{
			{Order: 1, Actor: domain.ParseActor("user"), Action: "submit", Description: "enters credentials"},
			{Order: 2, Actor: domain.ParseActor("system"), Action: "verify", Description: "checks the hash"},
		},
	}}
	return uc
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, root := newTestStore(t)
	uc := sampleUseCase(t)
	if err := s.Save(uc); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, "docs/use-cases/security/UC-SEC-001.toml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document not at expected path: %v", err)
	}
	got, err := s.LoadByID("UC-SEC-001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != uc.Title || got.Priority != uc.Priority || len(got.Scenarios) != 1 {
		t.Fatalf("round trip drift: %+v", got)
	}
	sc := got.Scenarios[0]
	if sc.Persona != "registered-user" || len(sc.Steps) != 2 || sc.Steps[1].Actor.Name() != "System" {
		t.Fatalf("scenario drift: %+v", sc)
	}
	if got.MethodologyFields["business"]["business_value"] != "fewer support tickets" {
		t.Fatalf("methodology fields lost: %+v", got.MethodologyFields)
	}
}

func TestExtraFieldsSurviveRoundTrip(t *testing.T) {
	s, root := newTestStore(t)
	uc := sampleUseCase(t)
	if err := s.Save(uc); err != nil {
		t.Fatal(err)
	}
	// Simulate a newer tool version adding unknown keys.
	path := filepath.Join(root, "docs/use-cases/security/UC-SEC-001.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data = append([]byte("future_field = \"kept\"\n"), data...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadByID("UC-SEC-001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Extra["future_field"] != "kept" {
		t.Fatalf("extra not captured: %+v", got.Extra)
	}
	got.Title = "Password login v2"
	if err := s.Save(got); err != nil {
		t.Fatal(err)
	}
	again, err := s.LoadByID("UC-SEC-001")
	if err != nil {
		t.Fatal(err)
	}
	if again.Extra["future_field"] != "kept" || again.Title != "Password login v2" {
		t.Fatalf("extra dropped on save: %+v", again.Extra)
	}
}

func TestLoadByIDNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.LoadByID("UC-SEC-099"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestLoadAllLexicographicOrder(t *testing.T) {
	s, _ := newTestStore(t)
	for _, tc := range []struct{ id, category string }{
		{"UC-SEC-002", "Security"},
		{"UC-API-001", "Api"},
		{"UC-SEC-001", "Security"},
	} {
		uc := sampleUseCase(t)
		uc.ID = tc.id
		uc.Category = tc.category
		uc.Scenarios[0].ID = tc.id + "-S01"
		if err := s.Save(uc); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, uc := range all {
		ids = append(ids, uc.ID)
	}
	want := "UC-API-001,UC-SEC-001,UC-SEC-002"
	if strings.Join(ids, ",") != want {
		t.Fatalf("order %v, want %s", ids, want)
	}
}

func TestExistingIDsSeesTornDocuments(t *testing.T) {
	s, root := newTestStore(t)
	dir := filepath.Join(root, "docs/use-cases/security")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// A half-written document from a crashed run still reserves its ID.
	if err := os.WriteFile(filepath.Join(dir, "UC-SEC-003.toml"), []byte("id = \"UC-SEC"), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err := s.ExistingIDs()
	if err != nil {
		t.Fatal(err)
	}
	if !ids["UC-SEC-003"] {
		t.Fatalf("torn document not reserved: %v", ids)
	}
}

func TestSaveRenderedAndDelete(t *testing.T) {
	s, root := newTestStore(t)
	uc := sampleUseCase(t)
	if err := s.Save(uc); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRendered(uc.ID, uc.ID+"-business-s.md", "# doc"); err != nil {
		t.Fatal(err)
	}
	mdPath := filepath.Join(root, "docs/use-cases/security", uc.ID+"-business-s.md")
	if data, err := os.ReadFile(mdPath); err != nil || string(data) != "# doc" {
		t.Fatalf("artifact: %q, %v", data, err)
	}
	if err := s.Delete(uc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(mdPath); !os.IsNotExist(err) {
		t.Fatal("rendered artifact survived delete")
	}
	if _, err := s.LoadByID(uc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("document survived delete: %v", err)
	}
}

func TestCategoryChangeMovesDocument(t *testing.T) {
	s, root := newTestStore(t)
	uc := sampleUseCase(t)
	if err := s.Save(uc); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRendered(uc.ID, uc.ID+"-business-s.md", "# doc"); err != nil {
		t.Fatal(err)
	}
	uc.Category = "Identity"
	if err := s.Save(uc); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "docs/use-cases/security/UC-SEC-001.toml")); !os.IsNotExist(err) {
		t.Fatal("old document left behind")
	}
	stale := filepath.Join(root, "docs/use-cases/security", uc.ID+"-business-s.md")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("rendered artifact stranded in old category directory")
	}
	if _, err := os.Stat(filepath.Join(root, "docs/use-cases/identity/UC-SEC-001.toml")); err != nil {
		t.Fatalf("document not moved: %v", err)
	}
}

func TestPersonaRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := domain.NewPersona("support-agent", "", "Resolve customer tickets fast", domain.PersonaTypePersona, now)
	if err != nil {
		t.Fatal(err)
	}
	p.Context = "Front line of the support desk"
	p.TechLevel = 2
	p.UsageFrequency = "daily"
	if err := s.SavePersona(p); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadPersona("support-agent")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Support Agent" || got.Emoji != p.Emoji {
		t.Fatalf("round trip drift: %+v", got)
	}
	if got.Goal != "Resolve customer tickets fast" || got.Context != p.Context {
		t.Fatalf("goal/context drift: %+v", got)
	}
	if got.TechLevel != 2 || got.UsageFrequency != "daily" {
		t.Fatalf("profile drift: %+v", got)
	}
	all, err := s.LoadAllPersonas()
	if err != nil || len(all) != 1 {
		t.Fatalf("got %v, %v", all, err)
	}
	if err := s.DeletePersona("support-agent"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadPersona("support-agent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("persona survived delete: %v", err)
	}
	if err := s.DeletePersona("support-agent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}
