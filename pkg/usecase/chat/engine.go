package chat

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/policy"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/service/reasoning"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/knowledge"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
)

// FallbackText is the reply given when the reasoning service fails
const FallbackText = "Ошибка подключения к ИИ. Проверьте API Key."

// DefaultLanguage is the response language of the assistant
const DefaultLanguage = "Russian"

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(systemPromptRaw))

// KnowledgeSource provides the knowledge that may enter the reasoning context
type KnowledgeSource interface {
	FilteredForContext() []knowledge.Cluster
}

// Engine runs single conversation turns
type Engine struct {
	reasoning reasoning.Service
	language  string
}

type EngineOption func(*Engine)

// WithLanguage sets the response language. Empty keeps the default.
func WithLanguage(language string) EngineOption {
	return func(e *Engine) {
		if language != "" {
			e.language = language
		}
	}
}

func New(svc reasoning.Service, opts ...EngineOption) *Engine {
	e := &Engine{
		reasoning: svc,
		language:  DefaultLanguage,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Converse produces the model reply to prompt. It never fails: any error on
// the way yields a model message carrying FallbackText.
func (e *Engine) Converse(ctx context.Context, profile *model.AgentProfile, source KnowledgeSource, history []*model.ChatMessage, prompt string) *model.ChatMessage {
	if profile == nil {
		logging.From(ctx).Warn("no agent profile for conversation")
		return model.NewModelMessage(FallbackText, nil)
	}
	bundle := policy.Resolve(profile.Type)

	instruction, err := e.systemInstruction(profile, bundle, source)
	if err != nil {
		logging.From(ctx).Warn("failed to build system instruction", "error", err)
		return model.NewModelMessage(FallbackText, nil)
	}

	resp, err := e.reasoning.Reason(ctx, &reasoning.Request{
		SystemInstruction: instruction,
		History:           history,
		Prompt:            prompt,
		AllowSearch:       bundle.AllowNetworkSearch,
	})
	if err != nil {
		logging.From(ctx).Warn("reasoning service failed, using fallback reply",
			"error", err,
			"agent", profile.ID,
		)
		return model.NewModelMessage(FallbackText, nil)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return model.NewModelMessage(FallbackText, nil)
	}

	var sources []model.Source
	if bundle.AllowNetworkSearch {
		sources = resp.Sources
	}
	return model.NewModelMessage(text, sources)
}

func (e *Engine) systemInstruction(profile *model.AgentProfile, bundle policy.Bundle, source KnowledgeSource) (string, error) {
	var clusters []knowledge.Cluster
	if source != nil {
		clusters = source.FilteredForContext()
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"Name":      profile.Name,
		"Role":      profile.Role,
		"Type":      profile.Type,
		"Directive": bundle.DirectiveText,
		"Skills":    profile.Skills,
		"Clusters":  clusters,
		"Language":  e.language,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute system prompt template")
	}
	return buf.String(), nil
}
