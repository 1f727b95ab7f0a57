package classifier

import (
	"context"
	"strings"

	statex "github.com/planscout/planscout/agent/state"
)

// Rules is a deterministic keyword classifier. It is the default backend and
// the fallback behind the LLM classifier, so classification can never fail:
// anything it cannot place resolves to IntentUnknown with the raw text kept
// as detail.
type Rules struct{}

func NewRules() *Rules {
	return &Rules{}
}

var researchPhrases = []string{
	"find out about",
	"tell me about",
	"information on",
	"look up",
	"research",
	"who is",
	"who are",
	"what do you know about",
}

var statusPhrases = []string{
	"status",
	"progress",
	"how's it going",
	"how is it going",
	"still researching",
	"where are we",
	"show plan",
	"show the plan",
	"show me the plan",
	"view plan",
	"view the plan",
	"display plan",
	"display the plan",
	"see the plan",
}

var updateVerbs = []string{"update", "change", "modify", "edit", "add", "set", "put", "fill in"}

var greetingWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "greetings": {},
	"good morning": {}, "good afternoon": {}, "good evening": {},
	"thanks": {}, "thank you": {},
}

func (r *Rules) Classify(ctx context.Context, utterance string, recent []statex.Turn) statex.Intent {
	raw := strings.TrimSpace(utterance)
	if raw == "" {
		return statex.Intent{Type: statex.IntentUnknown, Detail: utterance}
	}
	lower := strings.ToLower(raw)

	if _, ok := greetingWords[strings.Trim(lower, ".,!? ")]; ok {
		return statex.Intent{Type: statex.IntentGreet, Detail: raw}
	}

	for _, phrase := range statusPhrases {
		if strings.Contains(lower, phrase) {
			return statex.Intent{Type: statex.IntentQueryStatus, Detail: raw}
		}
	}

	// Research takes precedence over update phrasing: "research and add
	// competitors" runs research now and retains the section for the fold.
	if intent, ok := r.classifyResearch(raw, lower); ok {
		return intent
	}

	if intent, ok := r.classifyUpdate(raw, lower); ok {
		return intent
	}

	if intent, ok := r.classifyFromContext(raw, lower, recent); ok {
		return intent
	}

	return statex.Intent{Type: statex.IntentUnknown, Detail: raw}
}

func (r *Rules) classifyResearch(raw, lower string) (statex.Intent, bool) {
	idx, phrase := -1, ""
	for _, p := range researchPhrases {
		if i := strings.Index(lower, p); i >= 0 && (idx < 0 || i < idx) {
			idx, phrase = i, p
		}
	}
	if idx < 0 {
		return statex.Intent{}, false
	}

	remainder := strings.TrimSpace(raw[idx+len(phrase):])
	remainder, hint, ask := splitSectionClause(remainder)
	company := cleanCompany(remainder)

	return statex.Intent{
		Type:       statex.IntentResearchCompany,
		Company:    company,
		Section:    hint,
		Detail:     raw,
		AskSection: ask && hint == "",
	}, true
}

func (r *Rules) classifyUpdate(raw, lower string) (statex.Intent, bool) {
	verb := ""
	for _, v := range updateVerbs {
		if strings.HasPrefix(lower, v+" ") || lower == v {
			verb = v
			break
		}
	}
	if verb == "" {
		return statex.Intent{}, false
	}

	rest := strings.TrimSpace(raw[len(verb):])
	words := strings.Fields(rest)

	for i, w := range words {
		section, ok := statex.ParseSectionID(w)
		if !ok {
			continue
		}
		content := strings.Join(words[i+1:], " ")
		content = strings.TrimSpace(strings.TrimPrefix(content, ":"))
		for _, lead := range []string{"section", "to", "with", ":", "-"} {
			trimmed := strings.TrimSpace(content)
			lowerTrimmed := strings.ToLower(trimmed)
			if lowerTrimmed == lead {
				content = ""
				break
			}
			if strings.HasPrefix(lowerTrimmed, lead+" ") || strings.HasPrefix(trimmed, lead+":") {
				content = strings.TrimSpace(trimmed[len(lead):])
				content = strings.TrimSpace(strings.TrimPrefix(content, ":"))
			}
		}
		return statex.Intent{
			Type:    statex.IntentUpdateSection,
			Section: section,
			Detail:  strings.TrimSpace(content),
		}, true
	}

	// An update verb with no resolvable section is ambiguous, not unknown.
	return statex.Intent{Type: statex.IntentClarify, Detail: raw}, true
}

// classifyFromContext handles terse follow-ups: a bare section name while a
// choice is pending, or a bare company name right after the engine asked
// which company to research.
func (r *Rules) classifyFromContext(raw, lower string, recent []statex.Turn) (statex.Intent, bool) {
	words := strings.Fields(lower)
	if len(words) == 0 || len(words) > 4 {
		return statex.Intent{}, false
	}

	if len(words) <= 2 {
		candidate := words[len(words)-1]
		if section, ok := statex.ParseSectionID(candidate); ok {
			return statex.Intent{
				Type:    statex.IntentUpdateSection,
				Section: section,
				Detail:  "",
			}, true
		}
	}

	if len(recent) == 0 {
		return statex.Intent{}, false
	}
	last := recent[len(recent)-1].Intent
	if last.Type == statex.IntentResearchCompany && last.Company == "" {
		return statex.Intent{
			Type:    statex.IntentResearchCompany,
			Company: cleanCompany(raw),
			Section: last.Section,
			Detail:  raw,
		}, true
	}

	return statex.Intent{}, false
}

var sectionClauseLeads = []string{"and add", "and include", "and update", "and cover", "then add", "then update"}

// splitSectionClause strips a trailing "... and add <section>" clause and
// returns the remainder plus the section hint it named. When the clause is
// present but names no resolvable section ("and add it to the plan"), the
// ask flag tells the engine to request a section once results are in.
func splitSectionClause(remainder string) (string, statex.SectionID, bool) {
	lower := strings.ToLower(remainder)
	for _, lead := range sectionClauseLeads {
		i := strings.LastIndex(lower, lead)
		if i < 0 {
			continue
		}
		tail := strings.Fields(lower[i+len(lead):])
		if len(tail) == 0 {
			continue
		}
		candidate := tail[len(tail)-1]
		if candidate == "section" && len(tail) > 1 {
			candidate = tail[len(tail)-2]
		}
		if section, ok := statex.ParseSectionID(candidate); ok {
			return strings.TrimSpace(remainder[:i]), section, false
		}
		return strings.TrimSpace(remainder[:i]), "", true
	}

	// "research their competitors" style: the whole remainder is a section.
	words := strings.Fields(lower)
	if len(words) >= 1 && len(words) <= 2 {
		if section, ok := statex.ParseSectionID(words[len(words)-1]); ok {
			return "", section, false
		}
	}
	return remainder, "", false
}

func cleanCompany(remainder string) string {
	s := strings.TrimSpace(remainder)
	for _, lead := range []string{"on ", "about ", "into ", "the company "} {
		if strings.HasPrefix(strings.ToLower(s), lead) {
			s = strings.TrimSpace(s[len(lead):])
		}
	}
	s = strings.Trim(s, ".,!?:;\"'")
	if strings.EqualFold(s, "their") || strings.EqualFold(s, "them") || strings.EqualFold(s, "it") {
		return ""
	}
	return s
}
