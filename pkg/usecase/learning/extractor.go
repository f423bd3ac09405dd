package learning

import (
	"bytes"
	"context"
	_ "embed"
	"math"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/service/reasoning"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/structured"
)

//go:embed prompt/extract.md
var extractPromptRaw string

var extractPromptTmpl = template.Must(template.New("extract").Parse(extractPromptRaw))

type extractReply struct {
	Facts  []string     `json:"facts" jsonschema:"New facts learned from the conversation"`
	Skills []skillReply `json:"skills" jsonschema:"Skills exercised in the conversation"`
}

type skillReply struct {
	Name     string   `json:"name" jsonschema:"Skill name"`
	XPGained *float64 `json:"xpGained,omitempty" jsonschema:"Experience gained, 1 to 100"`
}

var extractCodec = structured.MustCodec[extractReply]()

// KnowledgeWriter receives the facts of a learning pass
type KnowledgeWriter interface {
	AddAll(ctx context.Context, items []*model.KnowledgeItem) error
}

// Extractor distills finished transcripts into knowledge and skill XP
type Extractor struct {
	reasoning reasoning.Service
	language  string
}

type ExtractorOption func(*Extractor)

// WithLanguage sets the language facts are written in
func WithLanguage(language string) ExtractorOption {
	return func(e *Extractor) {
		if language != "" {
			e.language = language
		}
	}
}

func New(svc reasoning.Service, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		reasoning: svc,
		language:  "Russian",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the reasoning service for facts and skill deltas. A failed
// call or a reply that does not match the expected shape yields an empty
// result, never an error.
func (e *Extractor) Extract(ctx context.Context, transcript string, existing []*model.KnowledgeItem) *model.LearningResult {
	empty := &model.LearningResult{}
	if strings.TrimSpace(transcript) == "" {
		return empty
	}

	var buf bytes.Buffer
	if err := extractPromptTmpl.Execute(&buf, map[string]any{
		"Existing":   existing,
		"Transcript": transcript,
		"Language":   e.language,
	}); err != nil {
		logging.From(ctx).Warn("failed to execute extract prompt template", "error", err)
		return empty
	}

	resp, err := e.reasoning.Reason(ctx, &reasoning.Request{
		Prompt:         buf.String(),
		ResponseSchema: extractCodec.GenaiSchema(),
	})
	if err != nil {
		logging.From(ctx).Warn("learning pass failed", "error", err)
		return empty
	}

	reply, err := extractCodec.Decode(resp.Text)
	if err != nil {
		logging.From(ctx).Warn("discarding malformed learning reply", "error", err)
		return empty
	}

	return toResult(reply)
}

func toResult(reply *extractReply) *model.LearningResult {
	result := &model.LearningResult{}
	for _, fact := range reply.Facts {
		if fact = strings.TrimSpace(fact); fact != "" {
			result.Facts = append(result.Facts, fact)
		}
	}

	for _, s := range reply.Skills {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		result.SkillUpdates = append(result.SkillUpdates, model.SkillUpdate{
			SkillName: name,
			XPGained:  xpAmount(s.XPGained),
		})
	}
	return result
}

// MaxXPGain caps a single skill update. Ten levels take 1000 points, so
// anything larger only pins the skill at the cap.
const MaxXPGain = model.MaxSkillLevel * model.ProgressPerLevel

// xpAmount applies the XP policy: an omitted amount is DefaultXPGain,
// negative amounts count as zero and large ones saturate at MaxXPGain
func xpAmount(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return model.DefaultXPGain
	}
	if *v < 0 {
		return 0
	}
	return int(math.Round(math.Min(*v, MaxXPGain)))
}

// Apply merges a result: every fact becomes a neutral knowledge item in the
// default cluster and every skill update goes through the level-up rule.
// The caller persists the profile.
func (e *Extractor) Apply(ctx context.Context, store KnowledgeWriter, profile *model.AgentProfile, result *model.LearningResult) error {
	if result.IsEmpty() {
		return nil
	}

	if len(result.Facts) > 0 {
		items := make([]*model.KnowledgeItem, 0, len(result.Facts))
		for _, fact := range result.Facts {
			items = append(items, &model.KnowledgeItem{
				Cluster:    model.DefaultCluster,
				Content:    fact,
				Confidence: model.DefaultConfidence,
				Type:       model.KnowledgeTypeNeutral,
			})
		}
		if err := store.AddAll(ctx, items); err != nil {
			return goerr.Wrap(err, "failed to store learned facts", goerr.V("count", len(items)))
		}
	}

	if profile != nil {
		for _, update := range result.SkillUpdates {
			skill := profile.GainSkillXP(update.SkillName, update.XPGained)
			logging.From(ctx).Debug("skill updated",
				"agent", profile.ID,
				"skill", skill.Name,
				"level", skill.Level,
				"progress", skill.Progress,
			)
		}
	}

	logging.From(ctx).Info("learning applied",
		"facts", len(result.Facts),
		"skills", len(result.SkillUpdates),
	)
	return nil
}
