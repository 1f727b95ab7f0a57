package enginenode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/planscout/planscout/agent/contract"
	statex "github.com/planscout/planscout/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type TurnInput struct {
	SessionID string
	Text      string
}

type TurnOutput = contractx.TurnResponse

// GraphState threads one turn through the engine pipeline.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session *statex.Session
	Intent  statex.Intent

	// EventsFrom is the progress log length at turn start; the response
	// carries everything appended after it.
	EventsFrom int

	Reply   string
	Outcome statex.TurnOutcome
}

func ValidateTurn(in TurnInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
