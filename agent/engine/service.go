package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	contractx "github.com/planscout/planscout/agent/contract"
	enginenode "github.com/planscout/planscout/agent/nodes/engine"
	statex "github.com/planscout/planscout/agent/state"
	logx "github.com/planscout/planscout/pkg/logger"
)

var (
	ErrInvalidMessage = enginenode.ErrInvalidMessage
	ErrInvalidSession = enginenode.ErrInvalidSession
)

// Engine drives one dialogue turn end to end: classify the utterance,
// run whatever the intent demands, and hand back the reply together with
// the current plan and the progress emitted along the way.
type Engine struct {
	store      statex.Store
	classifier contractx.Classifier
	researcher contractx.Researcher
	sources    []string
	sink       contractx.EventSink

	stash *enginenode.BatchStash

	mu       sync.Mutex
	sessions map[string]*statex.Session

	graphRunner compose.Runnable[enginenode.TurnInput, *enginenode.TurnOutput]

	log zerolog.Logger
	now func() time.Time
}

func New(
	store statex.Store,
	classifier contractx.Classifier,
	researcher contractx.Researcher,
	sources []string,
	sink contractx.EventSink,
) (*Engine, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if researcher == nil {
		return nil, errors.New("researcher is required")
	}
	if len(sources) == 0 {
		return nil, errors.New("at least one research source is required")
	}

	e := &Engine{
		store:      store,
		classifier: classifier,
		researcher: researcher,
		sources:    append([]string(nil), sources...),
		sink:       sink,
		stash:      enginenode.NewBatchStash(),
		sessions:   make(map[string]*statex.Session),
		log:        logx.Component("engine"),
		now:        time.Now,
	}

	graphRunner, err := e.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// SendUtterance processes one user turn for the given session.
func (e *Engine) SendUtterance(ctx context.Context, sessionID string, text string) (*enginenode.TurnOutput, error) {
	return e.graphRunner.Invoke(ctx, enginenode.TurnInput{
		SessionID: sessionID,
		Text:      text,
	})
}

// Resolve returns the live session for the ID, reviving it from the store
// when a snapshot exists, or creating a fresh one otherwise.
func (e *Engine) Resolve(ctx context.Context, sessionID string, now time.Time) (*statex.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sess, ok := e.sessions[sessionID]; ok {
		return sess, nil
	}

	if e.store != nil {
		snap, err := e.store.Load(ctx, sessionID)
		switch {
		case err == nil:
			sess, rerr := statex.RestoreSession(snap)
			if rerr != nil {
				return nil, rerr
			}
			e.sessions[sessionID] = sess
			return sess, nil
		case errors.Is(err, statex.ErrSnapshotNotFound):
			// fall through to a fresh session
		default:
			e.log.Warn().Err(err).Str("session_id", sessionID).Msg("snapshot load failed, starting fresh")
		}
	}

	sess, err := statex.NewSession(sessionID, now)
	if err != nil {
		return nil, err
	}
	e.sessions[sessionID] = sess
	return sess, nil
}

// EndSession tears the session down: cancels any in-flight research,
// persists a final snapshot, and drops the live entry. Ending an unknown
// session is a no-op.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	sess, ok := e.sessions[sessionID]
	if ok {
		delete(e.sessions, sessionID)
	}
	e.mu.Unlock()

	e.stash.Delete(sessionID)
	if !ok {
		return nil
	}

	sess.Close()

	sess.Lock()
	snap := sess.Snapshot()
	sess.Unlock()

	if e.store != nil {
		if err := e.store.Save(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}
