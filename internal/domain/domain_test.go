package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAggregateStatus(t *testing.T) {
	cases := []struct {
		name string
		in   []Status
		want Status
	}{
		{"empty", nil, StatusPlanned},
		{"all planned", []Status{StatusPlanned, StatusPlanned}, StatusPlanned},
		{"mixed takes least advanced", []Status{StatusPlanned, StatusInProgress, StatusTested}, StatusInProgress},
		{"all advanced", []Status{StatusTested, StatusDeployed}, StatusTested},
		{"deprecated dominates", []Status{StatusPlanned, StatusInProgress, StatusTested, StatusDeprecated}, StatusDeprecated},
		{"single implemented", []Status{StatusImplemented}, StatusImplemented},
	}
	for _, tc := range cases {
		if got := AggregateStatus(tc.in); got != tc.want {
			t.Errorf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("In_Progress")
	if err != nil || s != StatusInProgress {
		t.Fatalf("got %s, %v", s, err)
	}
	if _, err := ParseStatus("bogus"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseScenarioTypeAliases(t *testing.T) {
	cases := map[string]ScenarioType{
		"happy":            ScenarioHappyPath,
		"main":             ScenarioHappyPath,
		"happy_path":       ScenarioHappyPath,
		"primary":          ScenarioHappyPath,
		"alt":              ScenarioAlternativeFlow,
		"alternative":      ScenarioAlternativeFlow,
		"alternative_flow": ScenarioAlternativeFlow,
		"error":            ScenarioExceptionFlow,
		"exception":        ScenarioExceptionFlow,
		"ext":              ScenarioExtension,
		"extension":        ScenarioExtension,
	}
	for in, want := range cases {
		got, err := ParseScenarioType(in)
		if err != nil || got != want {
			t.Errorf("parse %q: got %s, %v", in, got, err)
		}
	}
	if _, err := ParseScenarioType("nope"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error")
	}
}

func TestParseActor(t *testing.T) {
	cases := map[string]string{
		"user":         "User",
		"API":          "ExternalAPI",
		"db":           "Database",
		"external_api": "ExternalAPI",
		"system":       "System",
		"server":       "Server",
		"Payment Team": "Payment Team",
	}
	for in, want := range cases {
		a := ParseActor(in)
		if a.Name() != want {
			t.Errorf("parse %q: got %q want %q", in, a.Name(), want)
		}
	}
	if !ParseActor("user").IsHuman() || !ParseActor("Alice").IsHuman() {
		t.Fatal("user and custom actors are human")
	}
	if ParseActor("db").IsHuman() {
		t.Fatal("database actor is not human")
	}
}

func TestCategoryPrefix(t *testing.T) {
	cases := map[string]string{
		"Security":       "SEC",
		"Ui":             "UIX",
		"authentication": "AUT",
		"a-b":            "ABX",
		"--":             "XXX",
		"":               "XXX",
		"2fa login":      "2FA",
	}
	for in, want := range cases {
		if got := CategoryPrefix(in); got != want {
			t.Errorf("prefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNextUseCaseID(t *testing.T) {
	mem := map[string]bool{"UC-SEC-001": true, "UC-SEC-002": true}
	disk := map[string]bool{"UC-SEC-003": true}
	id, err := NextUseCaseID("Security", mem, disk)
	if err != nil {
		t.Fatal(err)
	}
	if id != "UC-SEC-004" {
		t.Fatalf("got %s, want UC-SEC-004", id)
	}
	id, err = NextUseCaseID("Billing", nil, nil)
	if err != nil || id != "UC-BIL-001" {
		t.Fatalf("got %s, %v", id, err)
	}
	// gaps are filled, not skipped over
	id, err = NextUseCaseID("Security", map[string]bool{"UC-SEC-002": true}, nil)
	if err != nil || id != "UC-SEC-001" {
		t.Fatalf("got %s, %v", id, err)
	}
}

func TestNextScenarioID(t *testing.T) {
	uc := &UseCase{ID: "UC-SEC-001"}
	if got := uc.NextScenarioID(); got != "UC-SEC-001-S01" {
		t.Fatalf("got %s", got)
	}
	uc.Scenarios = []Scenario{{ID: "UC-SEC-001-S01"}, {ID: "UC-SEC-001-S03"}}
	if got := uc.NextScenarioID(); got != "UC-SEC-001-S04" {
		t.Fatalf("got %s", got)
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"User Management": "user_management",
		"API/Gateway":     "api_gateway",
		"simple":          "simple",
		"  spaced  ":      "spaced",
	}
	for in, want := range cases {
		if got := SnakeCase(in); got != want {
			t.Errorf("snake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateSteps(t *testing.T) {
	s := Scenario{ID: "UC-SEC-001-S01", Type: ScenarioHappyPath, Status: StatusPlanned}
	s.Steps = []ScenarioStep{
		{Order: 2, Actor: ParseActor("user"), Action: "submit"},
		{Order: 1, Actor: ParseActor("system"), Action: "prompt"},
	}
	if err := s.ValidateSteps(); err != nil {
		t.Fatalf("contiguous out-of-order steps are fine: %v", err)
	}
	s.Steps = append(s.Steps, ScenarioStep{Order: 4, Actor: ParseActor("db"), Action: "store"})
	if err := s.ValidateSteps(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected gap to fail validation, got %v", err)
	}
	s.Steps[2].Order = 2
	if err := s.ValidateSteps(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected duplicate order to fail validation, got %v", err)
	}
}

func TestAddStepKeepsOrder(t *testing.T) {
	s := Scenario{ID: "UC-SEC-001-S01"}
	s.AddStep(ScenarioStep{Order: 2, Actor: ParseActor("system"), Action: "respond"})
	s.AddStep(ScenarioStep{Order: 1, Actor: ParseActor("user"), Action: "ask"})
	if s.Steps[0].Order != 1 || s.Steps[1].Order != 2 {
		t.Fatalf("steps not sorted: %+v", s.Steps)
	}
}

func TestUseCaseValidate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	uc := &UseCase{
		ID:       "UC-SEC-001",
		Title:    "Login",
		Category: "Security",
		Priority: PriorityHigh,
		Metadata: NewMetadata(now),
	}
	if err := uc.Validate(); err != nil {
		t.Fatalf("valid use case rejected: %v", err)
	}
	uc.Scenarios = []Scenario{{ID: "UC-OTH-001-S01", Type: ScenarioHappyPath, Status: StatusPlanned}}
	if err := uc.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("foreign scenario id accepted")
	}
	uc.Scenarios = nil
	uc.Views = []MethodologyView{NewView("business", "simple"), NewView("business", "simple")}
	if err := uc.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate view accepted")
	}
}

func TestAddViewRejectsDuplicate(t *testing.T) {
	uc := &UseCase{ID: "UC-SEC-001", Title: "t", Category: "c", Priority: PriorityMedium}
	if err := uc.AddView(NewView("business", "simple")); err != nil {
		t.Fatal(err)
	}
	if err := uc.AddView(NewView("business", "simple")); !errors.Is(err, ErrValidation) {
		t.Fatal("duplicate view key accepted")
	}
	if err := uc.AddView(NewView("business", "normal")); err != nil {
		t.Fatalf("different level rejected: %v", err)
	}
}

func TestScenarioActors(t *testing.T) {
	s := Scenario{Steps: []ScenarioStep{
		{Order: 1, Actor: ParseActor("user"), Action: "a"},
		{Order: 2, Actor: ParseActor("system"), Action: "b"},
		{Order: 3, Actor: ParseActor("user"), Action: "c"},
	}}
	got := s.Actors()
	if len(got) != 2 || got[0].Name() != "User" || got[1].Name() != "System" {
		t.Fatalf("got %v", got)
	}
}

func TestPersona(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := NewPersona("senior-developer", "", "Ship features quickly", PersonaTypePersona, now)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Senior Developer" {
		t.Fatalf("derived name %q", p.Name)
	}
	if p.Emoji != "💻" {
		t.Fatalf("emoji %q", p.Emoji)
	}
	if p.Goal != "Ship features quickly" {
		t.Fatalf("goal %q", p.Goal)
	}
	if _, err := NewPersona("-bad", "", "g", PersonaTypePersona, now); !errors.Is(err, ErrValidation) {
		t.Fatal("leading separator accepted")
	}
	if _, err := NewPersona("Bad", "", "g", PersonaTypePersona, now); !errors.Is(err, ErrValidation) {
		t.Fatal("uppercase accepted")
	}
	if _, err := NewPersona("ok-id", "", "", PersonaTypePersona, now); !errors.Is(err, ErrValidation) {
		t.Fatal("missing goal accepted")
	}
	p.TechLevel = 6
	if err := p.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatal("tech level above 5 accepted")
	}
	p.TechLevel = 3
	p.Context = "Works on the platform team"
	p.UsageFrequency = "daily"
	if err := p.Validate(); err != nil {
		t.Fatalf("optional fields rejected: %v", err)
	}
}

func TestConditionValidate(t *testing.T) {
	c := Condition{Text: "user exists"}
	if err := c.Validate(); err != nil {
		t.Fatalf("plain condition rejected: %v", err)
	}
	c = Condition{Text: "login done", TargetType: RefUseCase, TargetID: "UC-SEC-001", Relationship: RelDependsOn}
	if err := c.Validate(); err != nil {
		t.Fatalf("referenced condition rejected: %v", err)
	}
	if !c.IsDependency() {
		t.Fatal("depends_on is a dependency")
	}
	c.Relationship = RelExtends
	if c.IsDependency() {
		t.Fatal("extends is not a dependency")
	}
	c.TargetID = "not-an-id"
	if err := c.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatal("bad target id accepted")
	}
}
