package enginenode

import (
	"context"

	statex "github.com/planscout/planscout/agent/state"
)

// FinalizeReply assembles the outward response: the reply text, the plan
// sections in canonical order, and the progress events emitted since this
// turn began.
func FinalizeReply(ctx context.Context, in *GraphState) (*TurnOutput, error) {
	out := &TurnOutput{Reply: in.Reply}

	in.Session.Lock()
	if in.Session.Plan != nil {
		out.Plan = in.Session.Plan.Render()
	}
	out.Events = in.Session.Progress.Since(in.EventsFrom)
	in.Session.Unlock()

	if out.Plan == nil {
		out.Plan = []statex.Section{}
	}
	if out.Events == nil {
		out.Events = []statex.ProgressEvent{}
	}
	return out, nil
}
