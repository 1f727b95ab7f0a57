package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidSectionTarget = errors.New("invalid section target")

type SectionID string

const (
	SectionOverview      SectionID = "overview"
	SectionFinancials    SectionID = "financials"
	SectionCompetitors   SectionID = "competitors"
	SectionOpportunities SectionID = "opportunities"
	SectionRisks         SectionID = "risks"
)

// CanonicalSectionOrder is the fixed display order used by Render.
var CanonicalSectionOrder = []SectionID{
	SectionOverview,
	SectionFinancials,
	SectionCompetitors,
	SectionOpportunities,
	SectionRisks,
}

var sectionTitles = map[SectionID]string{
	SectionOverview:      "Company Overview",
	SectionFinancials:    "Financials",
	SectionCompetitors:   "Competitive Landscape",
	SectionOpportunities: "Opportunities",
	SectionRisks:         "Risks",
}

var sectionSynonyms = map[string]SectionID{
	"overview":      SectionOverview,
	"company":       SectionOverview,
	"about":         SectionOverview,
	"summary":       SectionOverview,
	"financials":    SectionFinancials,
	"financial":     SectionFinancials,
	"finance":       SectionFinancials,
	"finances":      SectionFinancials,
	"revenue":       SectionFinancials,
	"competitors":   SectionCompetitors,
	"competitor":    SectionCompetitors,
	"competition":   SectionCompetitors,
	"rivals":        SectionCompetitors,
	"opportunities": SectionOpportunities,
	"opportunity":   SectionOpportunities,
	"risks":         SectionRisks,
	"risk":          SectionRisks,
	"threats":       SectionRisks,
}

// ParseSectionID resolves user phrasing ("risk", "competition") to a section.
func ParseSectionID(raw string) (SectionID, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Trim(key, ".,!?:;")
	id, ok := sectionSynonyms[key]
	return id, ok
}

func (s SectionID) Title() string {
	if title, ok := sectionTitles[s]; ok {
		return title
	}
	return string(s)
}

type Completeness string

const (
	CompletenessEmpty    Completeness = "empty"
	CompletenessPartial  Completeness = "partial"
	CompletenessComplete Completeness = "complete"
)

// completeContentThreshold is the minimum-information rule: content at or
// above this length marks a section complete.
const completeContentThreshold = 200

type Section struct {
	ID           SectionID    `json:"id"`
	Content      string       `json:"content"`
	Attribution  string       `json:"attribution,omitempty"`
	Completeness Completeness `json:"completeness"`
}

type EditLogEntry struct {
	TurnID    int       `json:"turn_id"`
	SectionID SectionID `json:"section_id"`
	Summary   string    `json:"summary"`
	At        time.Time `json:"at"`
}

// PlanDocument is the single mutable artifact of a session. Only the dialogue
// engine writes to it.
type PlanDocument struct {
	Company   string                 `json:"company"`
	Sections  map[SectionID]*Section `json:"sections"`
	EditLog   []EditLogEntry         `json:"edit_log,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewPlanDocument creates a plan with every enumerated section present and empty.
func NewPlanDocument(company string, now time.Time) *PlanDocument {
	sections := make(map[SectionID]*Section, len(CanonicalSectionOrder))
	for _, id := range CanonicalSectionOrder {
		sections[id] = &Section{ID: id, Completeness: CompletenessEmpty}
	}
	return &PlanDocument{
		Company:   strings.TrimSpace(company),
		Sections:  sections,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// EnsureSections backfills any section ids missing after deserialization.
func (p *PlanDocument) EnsureSections() {
	if p.Sections == nil {
		p.Sections = make(map[SectionID]*Section, len(CanonicalSectionOrder))
	}
	for _, id := range CanonicalSectionOrder {
		if p.Sections[id] == nil {
			p.Sections[id] = &Section{ID: id, Completeness: CompletenessEmpty}
		}
	}
}

// UpdateSection overwrites one section and appends to the edit log.
// A repeated call with identical content and attribution is a no-op, so the
// document state after two identical calls equals the state after one.
func (p *PlanDocument) UpdateSection(sectionID SectionID, content, attribution string, turnID int, now time.Time) error {
	sec, ok := p.Sections[sectionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidSectionTarget, sectionID)
	}

	content = strings.TrimSpace(content)
	if sec.Content == content && sec.Attribution == attribution {
		return nil
	}

	sec.Content = content
	sec.Attribution = attribution
	sec.Completeness = completenessFor(content)

	p.EditLog = append(p.EditLog, EditLogEntry{
		TurnID:    turnID,
		SectionID: sectionID,
		Summary:   editSummary(sectionID, content, attribution),
		At:        now.UTC(),
	})
	p.UpdatedAt = now.UTC()
	return nil
}

func completenessFor(content string) Completeness {
	switch {
	case content == "":
		return CompletenessEmpty
	case len(content) >= completeContentThreshold:
		return CompletenessComplete
	default:
		return CompletenessPartial
	}
}

func editSummary(sectionID SectionID, content, attribution string) string {
	if content == "" {
		return fmt.Sprintf("cleared %s", sectionID)
	}
	if attribution != "" {
		return fmt.Sprintf("updated %s from %s (%d chars)", sectionID, attribution, len(content))
	}
	return fmt.Sprintf("updated %s (%d chars)", sectionID, len(content))
}

// Render returns copies of all sections in canonical order.
func (p *PlanDocument) Render() []Section {
	out := make([]Section, 0, len(CanonicalSectionOrder))
	for _, id := range CanonicalSectionOrder {
		if sec := p.Sections[id]; sec != nil {
			out = append(out, *sec)
		}
	}
	return out
}

// NonEmptySections counts sections holding content.
func (p *PlanDocument) NonEmptySections() int {
	n := 0
	for _, sec := range p.Sections {
		if sec != nil && sec.Content != "" {
			n++
		}
	}
	return n
}

func (p *PlanDocument) Validate() error {
	for _, id := range CanonicalSectionOrder {
		if p.Sections[id] == nil {
			return fmt.Errorf("plan is missing section %s", id)
		}
	}
	if len(p.EditLog) < p.NonEmptySections() {
		return fmt.Errorf("edit log shorter than non-empty section count")
	}
	return nil
}
