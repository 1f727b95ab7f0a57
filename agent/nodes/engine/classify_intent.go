package enginenode

import (
	"context"
	"fmt"

	contractx "github.com/planscout/planscout/agent/contract"
)

// contextWindow bounds the turn slice handed to the classifier, keeping
// classification a function of (utterance, explicit context).
const contextWindow = 5

func ClassifyIntent(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.Lock()
	recent := in.Session.RecentTurns(contextWindow)
	in.Session.Unlock()

	in.Intent = classifier.Classify(ctx, in.Text, recent)
	return in, nil
}
