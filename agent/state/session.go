package state

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrInvalidSession = errors.New("session id is empty")
)

type IntentType string

const (
	IntentGreet           IntentType = "greet"
	IntentResearchCompany IntentType = "research_company"
	IntentUpdateSection   IntentType = "update_section"
	IntentQueryStatus     IntentType = "query_status"
	IntentClarify         IntentType = "clarify"
	IntentUnknown         IntentType = "unknown"
)

// Intent is the resolved meaning of one utterance. A research intent that
// also names a section is the compound form: research now, fold into that
// section when the batch comes back.
type Intent struct {
	Type    IntentType `json:"type"`
	Company string     `json:"company,omitempty"`
	Section SectionID  `json:"section,omitempty"`
	Detail  string     `json:"detail,omitempty"`

	// AskSection marks a compound research intent whose follow-up section
	// could not be resolved; the engine asks for the section once the
	// batch is in.
	AskSection bool `json:"ask_section,omitempty"`
}

// IsCompound reports whether a research intent carries a section hint for a
// queued follow-up update.
func (i Intent) IsCompound() bool {
	return i.Type == IntentResearchCompany && i.Section != ""
}

type TurnOutcome string

const (
	TurnSucceeded TurnOutcome = "succeeded"
	TurnPartial   TurnOutcome = "partial"
	TurnFailed    TurnOutcome = "failed"
)

// Turn is one utterance/response pair. Immutable once appended.
type Turn struct {
	Input   string      `json:"input"`
	Intent  Intent      `json:"intent"`
	At      time.Time   `json:"at"`
	Outcome TurnOutcome `json:"outcome"`
}

type Phase string

const (
	PhaseIdle                   Phase = "idle"
	PhaseAwaitingResearchTarget Phase = "awaiting_research_target"
	PhaseResearching            Phase = "researching"
	PhaseReviewingResults       Phase = "reviewing_results"
	PhaseAwaitingSectionChoice  Phase = "awaiting_section_choice"
)

type ProgressStage string

const (
	StageStarted   ProgressStage = "started"
	StageCompleted ProgressStage = "completed"
	StageFailed    ProgressStage = "failed"
)

// ProgressEvent is one append-only entry in a session's progress log,
// emitted per source on dispatch and again on resolution.
type ProgressEvent struct {
	Source string        `json:"source"`
	Stage  ProgressStage `json:"stage"`
	Detail string        `json:"detail,omitempty"`
	At     time.Time     `json:"at"`
}

// ProgressLog is a multiple-reader, single-writer event sequence. The
// orchestrator's worker goroutines append; the engine and external observers
// read snapshots concurrently.
type ProgressLog struct {
	mu     sync.RWMutex
	events []ProgressEvent
}

func (l *ProgressLog) Append(ev ProgressEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *ProgressLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Since returns a copy of all events appended at or after index from.
func (l *ProgressLog) Since(from int) []ProgressEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if from >= len(l.events) {
		return nil
	}
	out := make([]ProgressEvent, len(l.events)-from)
	copy(out, l.events[from:])
	return out
}

// Session is one conversation, owned exclusively by the dialogue engine.
// The mutex serializes turn processing; it is released while a research
// batch is in flight so status queries can be answered mid-research.
type Session struct {
	mu sync.Mutex

	ID          string
	Turns       []Turn
	Phase       Phase
	Plan        *PlanDocument
	PendingHint SectionID
	Progress    ProgressLog

	CreatedAt time.Time
	UpdatedAt time.Time

	closed         bool
	researchCancel func()
}

func NewSession(id string, now time.Time) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidSession
	}
	return &Session{
		ID:        id,
		Phase:     PhaseIdle,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Close marks the session torn down and cancels any in-flight research.
// The abandoned batch is discarded once its fold step observes the flag.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.researchCancel != nil {
		s.researchCancel()
		s.researchCancel = nil
	}
	s.mu.Unlock()
}

// SetResearchCancel registers the cancel hook for an in-flight research
// dispatch. Callers must hold the session lock.
func (s *Session) SetResearchCancel(fn func()) {
	s.researchCancel = fn
}

// Closed reports teardown. Callers must hold the session lock.
func (s *Session) Closed() bool {
	return s.closed
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn adds one completed turn. Turns are append-only; nothing in the
// engine mutates or removes a prior entry. A turn that began before research
// but finished after a mid-research status turn is clamped forward so the
// sequence stays chronological.
func (s *Session) AppendTurn(t Turn) {
	if n := len(s.Turns); n > 0 && t.At.Before(s.Turns[n-1].At) {
		t.At = s.Turns[n-1].At
	}
	s.Turns = append(s.Turns, t)
}

// NextTurnID is the 1-based id the turn being processed will receive.
func (s *Session) NextTurnID() int {
	return len(s.Turns) + 1
}

// RecentTurns returns up to n most recent turns, oldest first. This is the
// bounded context window handed to the classifier.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	start := len(s.Turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.Turns)-start)
	copy(out, s.Turns[start:])
	return out
}

func (s *Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSession
	}
	for i := 1; i < len(s.Turns); i++ {
		if s.Turns[i].At.Before(s.Turns[i-1].At) {
			return fmt.Errorf("turn %d predates turn %d", i+1, i)
		}
	}
	if s.Plan != nil {
		return s.Plan.Validate()
	}
	return nil
}

// SessionSnapshot is the serializable form persisted by a Store:
// {id, turns, plan:{company, sections, edit_log}}.
type SessionSnapshot struct {
	ID        string        `json:"id"`
	Turns     []Turn        `json:"turns,omitempty"`
	Plan      *PlanDocument `json:"plan,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot copies the persistable session state. Callers must hold the lock.
func (s *Session) Snapshot() *SessionSnapshot {
	snap := &SessionSnapshot{
		ID:        s.ID,
		Turns:     append([]Turn(nil), s.Turns...),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Plan != nil {
		plan := *s.Plan
		plan.Sections = make(map[SectionID]*Section, len(s.Plan.Sections))
		for id, sec := range s.Plan.Sections {
			copied := *sec
			plan.Sections[id] = &copied
		}
		plan.EditLog = append([]EditLogEntry(nil), s.Plan.EditLog...)
		snap.Plan = &plan
	}
	return snap
}

// RestoreSession rebuilds an engine-owned session from a persisted snapshot.
// Transient state (phase, pending hint, progress) starts fresh.
func RestoreSession(snap *SessionSnapshot) (*Session, error) {
	if snap == nil || strings.TrimSpace(snap.ID) == "" {
		return nil, ErrInvalidSession
	}
	s := &Session{
		ID:        snap.ID,
		Turns:     append([]Turn(nil), snap.Turns...),
		Phase:     PhaseIdle,
		Plan:      snap.Plan,
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
	if s.Plan != nil {
		s.Plan.EnsureSections()
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session snapshot: %w", err)
	}
	return s, nil
}
