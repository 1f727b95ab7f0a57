package enginenode

import (
	"context"

	"github.com/rs/zerolog/log"

	statex "github.com/planscout/planscout/agent/state"
)

// PersistSession snapshots the session and writes it through the store.
// Persistence failures are logged and swallowed: the turn already ran and
// the reply must reach the user, so a flaky store only costs durability.
func PersistSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if store == nil {
		return in, nil
	}

	in.Session.Lock()
	snap := in.Session.Snapshot()
	in.Session.Unlock()

	if err := store.Save(ctx, snap); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", in.SessionID).
			Msg("session snapshot save failed")
	}
	return in, nil
}
