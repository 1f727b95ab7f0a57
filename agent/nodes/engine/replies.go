package enginenode

import (
	"fmt"
	"strings"

	contractx "github.com/planscout/planscout/agent/contract"
	statex "github.com/planscout/planscout/agent/state"
)

// finishTurn records the reply and appends the completed, immutable turn.
// Callers hold the session lock.
func finishTurn(in *GraphState, sess *statex.Session, reply string, outcome statex.TurnOutcome) {
	in.Reply = reply
	in.Outcome = outcome
	sess.AppendTurn(statex.Turn{
		Input:   in.Text,
		Intent:  in.Intent,
		At:      in.Now,
		Outcome: outcome,
	})
	sess.Touch(in.Now)
}

func planCompany(sess *statex.Session) string {
	if sess.Plan != nil && sess.Plan.Company != "" {
		return sess.Plan.Company
	}
	return "that company"
}

func greetReply(sess *statex.Session) string {
	if sess.Plan == nil {
		return "Hello! I research companies and build account plans section by section. Which company should we start with?"
	}
	return fmt.Sprintf("Hello again! We're working on %s. Ask me to research more, update a section, or show the plan.", planCompany(sess))
}

func statusReply(sess *statex.Session) string {
	if sess.Plan == nil {
		return "No plan yet. Tell me which company to research and I'll start one."
	}
	return fmt.Sprintf("%s %s", researchStateLine(sess), planSummary(sess))
}

func researchStateLine(sess *statex.Session) string {
	switch sess.Phase {
	case statex.PhaseResearching:
		return fmt.Sprintf("Still researching %s.", planCompany(sess))
	case statex.PhaseAwaitingSectionChoice:
		return fmt.Sprintf("Research on %s is done; waiting for you to pick a section.", planCompany(sess))
	default:
		return fmt.Sprintf("Working on %s.", planCompany(sess))
	}
}

// progressReply answers a query that arrived while research is in flight,
// from the progress log alone.
func progressReply(sess *statex.Session) string {
	events := sess.Progress.Since(0)
	started, resolved := 0, 0
	for _, ev := range events {
		switch ev.Stage {
		case statex.StageStarted:
			started++
		default:
			resolved++
		}
	}
	return fmt.Sprintf("Still researching %s: %d of %d sources have come back. I'll fold the results in as soon as they're all done.",
		planCompany(sess), resolved, started)
}

func planSummary(sess *statex.Session) string {
	if sess.Plan == nil {
		return ""
	}
	complete, partial := 0, 0
	for _, sec := range sess.Plan.Render() {
		switch sec.Completeness {
		case statex.CompletenessComplete:
			complete++
		case statex.CompletenessPartial:
			partial++
		}
	}
	return fmt.Sprintf("The plan has %d complete and %d partial sections across %d edits.",
		complete, partial, len(sess.Plan.EditLog))
}

func foldReply(company string, folded, failed, total int) string {
	if failed == 0 {
		return fmt.Sprintf("Research on %s is done. All %d sources came back and I've folded the findings into the plan.", company, total)
	}
	return fmt.Sprintf("Research on %s is done. %d of %d sources came back (%d had issues); I've folded what succeeded into the plan.",
		company, folded, total, failed)
}

func clarifyReply(intent statex.Intent) string {
	if intent.Type == statex.IntentClarify {
		return fmt.Sprintf("I almost got that. Which section do you mean? Options: %s.", sectionOptions())
	}
	return "I'm not sure what you'd like me to do. You can ask me to research a company, update a plan section, or show the current plan."
}

func sectionOptions() string {
	names := make([]string, 0, len(statex.CanonicalSectionOrder))
	for _, id := range statex.CanonicalSectionOrder {
		names = append(names, string(id))
	}
	return strings.Join(names, ", ")
}

func okCount(batch contractx.ResearchBatch) int {
	n := 0
	for _, r := range batch.Results {
		if r.OK() {
			n++
		}
	}
	return n
}
