package engine

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	enginenode "github.com/planscout/planscout/agent/nodes/engine"
)

func (e *Engine) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[enginenode.TurnInput, *enginenode.TurnOutput], error) {
	graph := compose.NewGraph[enginenode.TurnInput, *enginenode.TurnOutput]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in enginenode.TurnInput) (*enginenode.GraphState, error) {
			return enginenode.ValidateTurn(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_session",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.ResolveSession(ctx, in, e)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_session: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.ClassifyIntent(ctx, in, e.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode("execute_intent",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.ExecuteIntent(ctx, in, enginenode.ExecDeps{
				Researcher: e.researcher,
				Sources:    e.sources,
				Stash:      e.stash,
				Sink:       e.sink,
			})
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_intent: %w", err)
	}

	if err := graph.AddLambdaNode("persist_session",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.GraphState, error) {
			return enginenode.PersistSession(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *enginenode.GraphState) (*enginenode.TurnOutput, error) {
			return enginenode.FinalizeReply(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_turn"},
		{"validate_turn", "resolve_session"},
		{"resolve_session", "classify_intent"},
		{"classify_intent", "execute_intent"},
		{"execute_intent", "persist_session"},
		{"persist_session", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("engine.handle_utterance"))
	if err != nil {
		return nil, fmt.Errorf("compile engine graph: %w", err)
	}
	return runner, nil
}
