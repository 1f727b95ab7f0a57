package enginenode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/planscout/planscout/agent/contract"
	statex "github.com/planscout/planscout/agent/state"
)

// SessionResolver hands the node the engine-owned live session for an id,
// creating or restoring it as needed.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string, now time.Time) (*statex.Session, error)
}

func ResolveSession(ctx context.Context, in *GraphState, resolver SessionResolver) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := resolver.Resolve(ctx, in.SessionID, in.Now)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	if sess.Closed() {
		sess.Unlock()
		return nil, statex.ErrSessionClosed
	}
	in.EventsFrom = sess.Progress.Len()
	sess.Unlock()

	in.Session = sess
	return in, nil
}
