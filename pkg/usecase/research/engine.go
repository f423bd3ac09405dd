package research

import (
	"bytes"
	"context"
	_ "embed"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/service/reasoning"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/structured"
)

// FailureSummary is the summary of a research job that produced nothing
const FailureSummary = "Исследование не дало результатов."

//go:embed prompt/research.md
var researchPromptRaw string

var researchPromptTmpl = template.Must(template.New("research").Parse(researchPromptRaw))

type researchReply struct {
	Summary string         `json:"summary,omitempty" jsonschema:"Overview of the findings"`
	Items   []researchItem `json:"items" jsonschema:"Knowledge items"`
}

type researchItem struct {
	Content    string   `json:"content" jsonschema:"One self-contained fact"`
	Cluster    string   `json:"cluster,omitempty" jsonschema:"Topical cluster name"`
	Type       string   `json:"type,omitempty" jsonschema:"beneficial, harmful or neutral"`
	Confidence *float64 `json:"confidence,omitempty" jsonschema:"Confidence from 0 to 100"`
}

var researchCodec = structured.MustCodec[researchReply]()

// Engine runs research jobs
type Engine struct {
	reasoning reasoning.Service
	language  string
	now       func() time.Time
}

type EngineOption func(*Engine)

// WithLanguage sets the language of the summary and items
func WithLanguage(language string) EngineOption {
	return func(e *Engine) {
		if language != "" {
			e.language = language
		}
	}
}

// WithClock replaces time.Now for timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

func New(svc reasoning.Service, opts ...EngineOption) *Engine {
	e := &Engine{
		reasoning: svc,
		language:  "Russian",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Research asks the search-enabled reasoning service for clustered knowledge
// about topic. It never fails: an unusable reply yields an empty result with
// FailureSummary.
func (e *Engine) Research(ctx context.Context, topic string) *model.ResearchResult {
	now := e.now()
	failed := &model.ResearchResult{
		Topic:       topic,
		Summary:     FailureSummary,
		Items:       []*model.KnowledgeItem{},
		CompletedAt: now,
	}

	if strings.TrimSpace(topic) == "" {
		return failed
	}

	var buf bytes.Buffer
	if err := researchPromptTmpl.Execute(&buf, map[string]any{
		"Topic":    topic,
		"Language": e.language,
		"Schema":   researchCodec.Describe(),
	}); err != nil {
		logging.From(ctx).Warn("failed to execute research prompt template", "error", err)
		return failed
	}

	resp, err := e.reasoning.Reason(ctx, &reasoning.Request{
		Prompt:      buf.String(),
		AllowSearch: true,
	})
	if err != nil {
		logging.From(ctx).Warn("research call failed", "error", err, "topic", topic)
		return failed
	}

	reply, err := researchCodec.Decode(resp.Text)
	if err != nil {
		logging.From(ctx).Warn("discarding malformed research reply", "error", err, "topic", topic)
		return failed
	}

	items := make([]*model.KnowledgeItem, 0, len(reply.Items))
	for _, ri := range reply.Items {
		content := strings.TrimSpace(ri.Content)
		if content == "" {
			continue
		}
		item := &model.KnowledgeItem{
			ID:         model.NewKnowledgeID(),
			Cluster:    strings.TrimSpace(ri.Cluster),
			Content:    content,
			AddedAt:    now,
			Confidence: confidence(ri.Confidence),
			Type:       model.ParseKnowledgeType(strings.ToLower(strings.TrimSpace(ri.Type))),
		}
		item.Normalize()
		items = append(items, item)
	}

	summary := strings.TrimSpace(reply.Summary)
	if len(items) == 0 && summary == "" {
		return failed
	}

	// A lone citation is attached to the first item only
	if len(resp.Sources) == 1 && len(items) > 0 {
		items[0].SourceURL = resp.Sources[0].URI
	}

	logging.From(ctx).Info("research completed",
		"topic", topic,
		"items", len(items),
		"sources", len(resp.Sources),
	)

	return &model.ResearchResult{
		Topic:          topic,
		Summary:        summary,
		Items:          items,
		ProcessedCount: len(items),
		Sources:        resp.Sources,
		CompletedAt:    now,
	}
}

func confidence(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return model.DefaultConfidence
	}
	return model.ClampConfidence(int(math.Round(math.Max(math.Min(*v, 100), 0))))
}
