package state

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testNow() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func TestNewPlanDocumentHasAllSections(t *testing.T) {
	t.Parallel()

	plan := NewPlanDocument("Acme", testNow())
	if err := plan.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, id := range CanonicalSectionOrder {
		sec := plan.Sections[id]
		if sec == nil {
			t.Fatalf("missing section %s", id)
		}
		if sec.Completeness != CompletenessEmpty {
			t.Fatalf("section %s completeness = %s, want empty", id, sec.Completeness)
		}
	}
}

func TestUpdateSectionIdempotent(t *testing.T) {
	t.Parallel()

	plan := NewPlanDocument("Acme", testNow())

	if err := plan.UpdateSection(SectionOverview, "Acme makes anvils.", "wikipedia", 1, testNow()); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}
	if got := len(plan.EditLog); got != 1 {
		t.Fatalf("edit log len = %d, want 1", got)
	}

	// Same content and attribution again: no new edit, no state change.
	if err := plan.UpdateSection(SectionOverview, "Acme makes anvils.", "wikipedia", 2, testNow().Add(time.Minute)); err != nil {
		t.Fatalf("UpdateSection() repeat error = %v", err)
	}
	if got := len(plan.EditLog); got != 1 {
		t.Fatalf("edit log len after repeat = %d, want 1", got)
	}
	if got := plan.UpdatedAt; !got.Equal(testNow()) {
		t.Fatalf("UpdatedAt moved on idempotent update: %v", got)
	}

	// Different attribution with the same content is a real edit.
	if err := plan.UpdateSection(SectionOverview, "Acme makes anvils.", "website", 3, testNow().Add(time.Minute)); err != nil {
		t.Fatalf("UpdateSection() new attribution error = %v", err)
	}
	if got := len(plan.EditLog); got != 2 {
		t.Fatalf("edit log len = %d, want 2", got)
	}
}

func TestUpdateSectionCompleteness(t *testing.T) {
	t.Parallel()

	plan := NewPlanDocument("Acme", testNow())

	if err := plan.UpdateSection(SectionRisks, "short note", "user", 1, testNow()); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}
	if got := plan.Sections[SectionRisks].Completeness; got != CompletenessPartial {
		t.Fatalf("completeness = %s, want partial", got)
	}

	long := strings.Repeat("Acme faces pricing pressure. ", 10)
	if err := plan.UpdateSection(SectionRisks, long, "user", 2, testNow()); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}
	if got := plan.Sections[SectionRisks].Completeness; got != CompletenessComplete {
		t.Fatalf("completeness = %s, want complete", got)
	}

	if err := plan.UpdateSection(SectionRisks, "", "user", 3, testNow()); err != nil {
		t.Fatalf("UpdateSection() clear error = %v", err)
	}
	if got := plan.Sections[SectionRisks].Completeness; got != CompletenessEmpty {
		t.Fatalf("completeness = %s, want empty", got)
	}
}

func TestUpdateSectionInvalidTarget(t *testing.T) {
	t.Parallel()

	plan := NewPlanDocument("Acme", testNow())
	err := plan.UpdateSection("roadmap", "content", "user", 1, testNow())
	if !errors.Is(err, ErrInvalidSectionTarget) {
		t.Fatalf("expected ErrInvalidSectionTarget, got %v", err)
	}
	if got := len(plan.EditLog); got != 0 {
		t.Fatalf("edit log len = %d, want 0", got)
	}
}

func TestRenderCanonicalOrder(t *testing.T) {
	t.Parallel()

	plan := NewPlanDocument("Acme", testNow())
	if err := plan.UpdateSection(SectionRisks, "pricing pressure", "user", 1, testNow()); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}

	rendered := plan.Render()
	if len(rendered) != len(CanonicalSectionOrder) {
		t.Fatalf("rendered %d sections, want %d", len(rendered), len(CanonicalSectionOrder))
	}
	for i, id := range CanonicalSectionOrder {
		if rendered[i].ID != id {
			t.Fatalf("rendered[%d] = %s, want %s", i, rendered[i].ID, id)
		}
	}

	// Render returns copies; mutating them must not touch the plan.
	rendered[0].Content = "scribble"
	if plan.Sections[SectionOverview].Content == "scribble" {
		t.Fatal("Render() leaked a live section pointer")
	}
}

func TestParseSectionID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want SectionID
		ok   bool
	}{
		{"competitors", SectionCompetitors, true},
		{"Competition", SectionCompetitors, true},
		{"rivals", SectionCompetitors, true},
		{"risk", SectionRisks, true},
		{"threats?", SectionRisks, true},
		{"Finances", SectionFinancials, true},
		{"  overview  ", SectionOverview, true},
		{"roadmap", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseSectionID(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseSectionID(%q) = (%s, %v), want (%s, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEnsureSectionsBackfills(t *testing.T) {
	t.Parallel()

	plan := &PlanDocument{Company: "Acme"}
	plan.EnsureSections()
	if err := plan.Validate(); err != nil {
		t.Fatalf("Validate() after EnsureSections error = %v", err)
	}
}
