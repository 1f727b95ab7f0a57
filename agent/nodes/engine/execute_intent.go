package enginenode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/planscout/planscout/agent/contract"
	statex "github.com/planscout/planscout/agent/state"
)

// ExecDeps carries the engine collaborators the execute node dispatches to.
type ExecDeps struct {
	Researcher contractx.Researcher
	Sources    []string
	Stash      *BatchStash
	Sink       contractx.EventSink
}

// ExecuteIntent is the transition table: it maps (phase, intent) to the
// action for this turn, runs it, and appends the completed turn. The session
// lock is held throughout except while a research batch is in flight, so
// status queries can be answered mid-research.
func ExecuteIntent(ctx context.Context, in *GraphState, deps ExecDeps) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	sess := in.Session
	sess.Lock()
	defer sess.Unlock()

	if sess.Closed() {
		return nil, statex.ErrSessionClosed
	}

	switch {
	case sess.Phase == statex.PhaseResearching:
		// In-flight guard: one outstanding research per session. Anything
		// else arriving now is answered from the progress log, state
		// untouched.
		if in.Intent.Type == statex.IntentResearchCompany {
			log.Debug().Err(contractx.ErrConcurrentResearch).Str("session_id", sess.ID).Msg("research request rejected")
			finishTurn(in, sess, fmt.Sprintf(
				"I'm still researching %s and can take one research request at a time. Ask again once this batch is in.",
				planCompany(sess)), statex.TurnFailed)
		} else {
			finishTurn(in, sess, progressReply(sess), statex.TurnSucceeded)
		}

	case in.Intent.Type == statex.IntentGreet:
		finishTurn(in, sess, greetReply(sess), statex.TurnSucceeded)

	case in.Intent.Type == statex.IntentQueryStatus:
		finishTurn(in, sess, statusReply(sess), statex.TurnSucceeded)

	case sess.Phase == statex.PhaseAwaitingSectionChoice && in.Intent.Type != statex.IntentResearchCompany:
		reply, outcome := resolveSectionChoice(in, sess, deps)
		finishTurn(in, sess, reply, outcome)

	case in.Intent.Type == statex.IntentResearchCompany:
		return runResearch(ctx, in, deps)

	case sess.Phase == statex.PhaseAwaitingResearchTarget && in.Intent.Type == statex.IntentUnknown:
		// The engine just asked which company to research; take the raw
		// text as the answer.
		in.Intent = statex.Intent{
			Type:    statex.IntentResearchCompany,
			Company: strings.TrimSpace(in.Text),
			Detail:  in.Text,
		}
		return runResearch(ctx, in, deps)

	case in.Intent.Type == statex.IntentUpdateSection:
		reply, outcome := applyDirectUpdate(in, sess)
		finishTurn(in, sess, reply, outcome)

	default:
		if in.Intent.Type == statex.IntentClarify {
			log.Debug().Err(contractx.ErrClassificationAmbiguous).Str("session_id", sess.ID).Msg("asking which section was meant")
		}
		finishTurn(in, sess, clarifyReply(in.Intent), statex.TurnSucceeded)
	}

	return in, nil
}

// runResearch is entered with the session lock held and returns with it
// held; it releases the lock only around the orchestrator join.
func runResearch(ctx context.Context, in *GraphState, deps ExecDeps) (*GraphState, error) {
	sess := in.Session

	company := strings.TrimSpace(in.Intent.Company)
	if company == "" && sess.Plan != nil {
		company = sess.Plan.Company
	}
	if company == "" {
		sess.Phase = statex.PhaseAwaitingResearchTarget
		finishTurn(in, sess, "I'd be happy to research a company for you. Which company should I look into?", statex.TurnPartial)
		return in, nil
	}

	// A new research request supersedes a parked batch.
	if sess.Phase == statex.PhaseAwaitingSectionChoice {
		deps.Stash.Delete(sess.ID)
	}

	if sess.Plan == nil {
		sess.Plan = statex.NewPlanDocument(company, in.Now)
	} else if sess.Plan.Company == "" {
		sess.Plan.Company = company
	}

	sess.Phase = statex.PhaseResearching
	sess.PendingHint = in.Intent.Section
	hint := sess.PendingHint
	askSection := in.Intent.AskSection && hint == ""

	researchCtx, cancel := context.WithCancel(ctx)
	sess.SetResearchCancel(cancel)

	progress := func(ev statex.ProgressEvent) {
		sess.Progress.Append(ev)
		if deps.Sink != nil {
			if err := deps.Sink.Publish(researchCtx, ev); err != nil {
				log.Warn().Err(err).Str("source", ev.Source).Msg("progress publish failed")
			}
		}
	}

	req := contractx.ResearchRequest{
		Company: company,
		Sources: deps.Sources,
	}

	sess.Unlock()
	batch, err := deps.Researcher.Gather(researchCtx, req, progress)
	cancel()
	sess.Lock()
	sess.SetResearchCancel(nil)

	if sess.Closed() {
		// Torn down mid-research: the batch is abandoned, nothing folds.
		return nil, statex.ErrSessionClosed
	}

	if err != nil {
		sess.Phase = statex.PhaseIdle
		sess.PendingHint = ""
		finishTurn(in, sess, fmt.Sprintf("I couldn't start research on %s: %v. Try again.", company, err), statex.TurnFailed)
		return in, nil
	}

	sess.Phase = statex.PhaseReviewingResults

	switch {
	case batch.AllFailed():
		sess.Phase = statex.PhaseIdle
		sess.PendingHint = ""
		log.Warn().Err(contractx.ErrResearchAllFailed).Str("company", company).Msg("research produced nothing")
		finishTurn(in, sess, fmt.Sprintf(
			"Research on %s failed across every source, so nothing was added to the plan. Try again in a moment.",
			company), statex.TurnFailed)

	case askSection:
		deps.Stash.Put(sess.ID, batch)
		sess.Phase = statex.PhaseAwaitingSectionChoice
		finishTurn(in, sess, fmt.Sprintf(
			"Research on %s is in (%d of %d sources succeeded). Which section should I fold it into? Options: %s.",
			company, okCount(batch), len(batch.Results), sectionOptions()), statex.TurnPartial)

	default:
		folded, failed := foldBatch(sess, batch, hint, in.Now)
		sess.Phase = statex.PhaseIdle
		sess.PendingHint = ""
		outcome := statex.TurnSucceeded
		if failed > 0 {
			outcome = statex.TurnPartial
		}
		finishTurn(in, sess, foldReply(company, folded, failed, len(batch.Results)), outcome)
	}

	return in, nil
}

func resolveSectionChoice(in *GraphState, sess *statex.Session, deps ExecDeps) (string, statex.TurnOutcome) {
	section := in.Intent.Section
	if section == "" {
		if parsed, ok := statex.ParseSectionID(in.Text); ok {
			section = parsed
		}
	}
	if section == "" {
		return fmt.Sprintf("Which section should the findings go into? Options: %s.", sectionOptions()), statex.TurnPartial
	}

	batch, ok := deps.Stash.Take(sess.ID)
	if !ok {
		sess.Phase = statex.PhaseIdle
		return "I no longer have those findings on hand. Ask me to research them again.", statex.TurnFailed
	}

	folded, failed := foldBatch(sess, batch, section, in.Now)
	sess.Phase = statex.PhaseIdle
	sess.PendingHint = ""
	if folded == 0 {
		return "None of the sources produced usable facts, so the plan is unchanged.", statex.TurnFailed
	}
	outcome := statex.TurnSucceeded
	if failed > 0 {
		outcome = statex.TurnPartial
	}
	return fmt.Sprintf("Folded the findings into %s. %s", section.Title(), planSummary(sess)), outcome
}

func applyDirectUpdate(in *GraphState, sess *statex.Session) (string, statex.TurnOutcome) {
	if strings.TrimSpace(in.Intent.Detail) == "" {
		return fmt.Sprintf("What should the %s section say?", in.Intent.Section.Title()), statex.TurnPartial
	}

	if sess.Plan == nil {
		sess.Plan = statex.NewPlanDocument(in.Intent.Company, in.Now)
	}

	err := sess.Plan.UpdateSection(in.Intent.Section, in.Intent.Detail, "user", sess.NextTurnID(), in.Now)
	if err != nil {
		return fmt.Sprintf("I don't have a %q section. Options: %s.", in.Intent.Section, sectionOptions()), statex.TurnFailed
	}

	sess.Phase = statex.PhaseIdle
	return fmt.Sprintf("Updated %s. %s", in.Intent.Section.Title(), planSummary(sess)), statex.TurnSucceeded
}

// foldBatch merges every facts-bearing source into its target section. A
// failed source never blocks the others. Returns folded and failed counts.
func foldBatch(sess *statex.Session, batch contractx.ResearchBatch, hint statex.SectionID, now time.Time) (int, int) {
	folded, failed := 0, 0
	turnID := sess.NextTurnID()

	// Sources sharing a target section (a hint routes all of them to one)
	// merge into a single edit so no source overwrites another's facts.
	type sectionGroup struct {
		sources []string
		facts   []contractx.Fact
	}
	var order []statex.SectionID
	groups := make(map[statex.SectionID]*sectionGroup)
	for _, result := range batch.Results {
		if !result.OK() {
			failed++
			continue
		}
		if len(result.Facts) == 0 {
			continue
		}
		target := sectionForSource(result.Source, hint)
		group, ok := groups[target]
		if !ok {
			group = &sectionGroup{}
			groups[target] = group
			order = append(order, target)
		}
		group.sources = append(group.sources, result.Source)
		group.facts = append(group.facts, result.Facts...)
	}

	for _, target := range order {
		group := groups[target]
		content := factsToContent(group.facts)
		attribution := strings.Join(group.sources, ", ")
		if err := sess.Plan.UpdateSection(target, content, attribution, turnID, now); err != nil {
			log.Warn().Err(err).Str("sources", attribution).Msg("fold skipped section")
			failed += len(group.sources)
			continue
		}
		folded += len(group.sources)
	}
	return folded, failed
}

func factsToContent(facts []contractx.Fact) string {
	parts := make([]string, 0, len(facts))
	for _, f := range facts {
		if text := strings.TrimSpace(f.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
