package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/planscout/planscout/agent/contract"
	statex "github.com/planscout/planscout/agent/state"
)

const classifierContextWindow = 5

type llmIntentOutput struct {
	Intent     string `json:"intent"`
	Company    string `json:"company,omitempty"`
	Section    string `json:"section,omitempty"`
	Detail     string `json:"detail,omitempty"`
	AskSection bool   `json:"ask_section,omitempty"`
}

// LLM delegates classification to a language-understanding backend through a
// structured-output graph. The contract forbids classification failures, so
// any model or schema problem degrades to the rule classifier.
type LLM struct {
	runner   compose.Runnable[map[string]any, llmIntentOutput]
	fallback contractx.Classifier
}

func NewLLM(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, fallback contractx.Classifier) (*LLM, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier prompt is empty", contractx.ErrValidation)
	}
	if fallback == nil {
		fallback = NewRules()
	}

	runner, err := compileIntentGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile intent graph: %v", contractx.ErrModelInvoke, err)
	}

	return &LLM{
		runner:   runner,
		fallback: fallback,
	}, nil
}

func (c *LLM) Classify(ctx context.Context, utterance string, recent []statex.Turn) statex.Intent {
	raw := strings.TrimSpace(utterance)
	if raw == "" {
		return statex.Intent{Type: statex.IntentUnknown, Detail: utterance}
	}

	payload := map[string]any{
		"utterance":    raw,
		"recent_turns": summarizeTurns(recent),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return c.fallback.Classify(ctx, utterance, recent)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		log.Warn().Err(err).Msg("intent model invoke failed, using rule classifier")
		return c.fallback.Classify(ctx, utterance, recent)
	}

	intent, ok := toIntent(out, raw)
	if !ok {
		log.Warn().Err(contractx.ErrSchemaViolation).Str("intent", out.Intent).Msg("using rule classifier")
		return c.fallback.Classify(ctx, utterance, recent)
	}
	return intent
}

func toIntent(out llmIntentOutput, raw string) (statex.Intent, bool) {
	intentType := statex.IntentType(strings.ToLower(strings.TrimSpace(out.Intent)))
	switch intentType {
	case statex.IntentGreet, statex.IntentResearchCompany, statex.IntentUpdateSection,
		statex.IntentQueryStatus, statex.IntentClarify, statex.IntentUnknown:
	default:
		return statex.Intent{}, false
	}

	var section statex.SectionID
	if s := strings.TrimSpace(out.Section); s != "" {
		parsed, ok := statex.ParseSectionID(s)
		if !ok {
			return statex.Intent{}, false
		}
		section = parsed
	}

	if intentType == statex.IntentUpdateSection && section == "" {
		intentType = statex.IntentClarify
	}

	detail := strings.TrimSpace(out.Detail)
	if intentType == statex.IntentUnknown && detail == "" {
		detail = raw
	}

	return statex.Intent{
		Type:       intentType,
		Company:    strings.TrimSpace(out.Company),
		Section:    section,
		Detail:     detail,
		AskSection: out.AskSection && intentType == statex.IntentResearchCompany && section == "",
	}, true
}

type turnSummary struct {
	Input  string `json:"input"`
	Intent string `json:"intent"`
}

func summarizeTurns(recent []statex.Turn) []turnSummary {
	start := 0
	if len(recent) > classifierContextWindow {
		start = len(recent) - classifierContextWindow
	}
	out := make([]turnSummary, 0, len(recent)-start)
	for _, t := range recent[start:] {
		out = append(out, turnSummary{
			Input:  t.Input,
			Intent: string(t.Intent.Type),
		})
	}
	return out
}

func compileIntentGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, llmIntentOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[llmIntentOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, llmIntentOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add intent prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add intent model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add intent parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add intent edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add intent edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add intent edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add intent edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("classifier.intent_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile intent graph: %w", err)
	}
	return runner, nil
}
