package assistant

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"sync"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/policy"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/service/reasoning"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/chat"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/knowledge"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/learning"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/profile"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/research"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/settings"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// WelcomeText opens every transcript
const WelcomeText = "Привет! Я NexusOps 2.0 с доступом в Интернет. \n\nЯ могу:\n1. Гуглить актуальные решения.\n2. Генерировать полные скрипты деплоя (Git -> Server).\n3. Запоминать детали вашего проекта в Базе Знаний."

// UserCluster is the cluster of knowledge entered by hand
const UserCluster = knowledge.ManualCluster

// Deploy strategies
const (
	StrategyDocker = "docker"
	StrategyNginx  = "nginx"
)

var (
	ErrEmptyPrompt     = goerr.New("prompt is empty")
	ErrInvalidStrategy = goerr.New("invalid deploy strategy")
)

//go:embed prompt/deploy.md
var deployPromptRaw string

var deployPromptTmpl = template.Must(template.New("deploy").Parse(deployPromptRaw))

// Assistant owns the state of one session: the active agent, its transcript
// and the knowledge it reads and writes
type Assistant struct {
	chat      *chat.Engine
	learner   *learning.Extractor
	research  *research.Engine
	gate      *policy.Gate
	knowledge *knowledge.Store
	profiles  *profile.Store
	settings  *settings.Store
	autoLearn bool

	mu         sync.Mutex
	profile    *model.AgentProfile
	transcript model.Transcript

	learning *errgroup.Group
}

// NewInput contains parameters for creating an assistant
type NewInput struct {
	Reasoning reasoning.Service
	Gate      *policy.Gate
	Knowledge *knowledge.Store
	Profiles  *profile.Store
	Settings  *settings.Store

	// AgentRef is the id or name of the active agent
	AgentRef string
	Language string

	// AutoLearn schedules a background learning pass after every turn
	AutoLearn bool
}

// New creates an assistant. The stores must already be loaded.
func New(input NewInput) (*Assistant, error) {
	if input.Reasoning == nil || input.Gate == nil || input.Knowledge == nil || input.Profiles == nil || input.Settings == nil {
		return nil, goerr.New("assistant dependencies are missing")
	}

	agentRef := input.AgentRef
	if agentRef == "" {
		agentRef = string(profile.OperatorID)
	}
	p, err := input.Profiles.Find(agentRef)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to select agent")
	}

	return &Assistant{
		chat:      chat.New(input.Reasoning, chat.WithLanguage(input.Language)),
		learner:   learning.New(input.Reasoning, learning.WithLanguage(input.Language)),
		research:  research.New(input.Reasoning, research.WithLanguage(input.Language)),
		gate:      input.Gate,
		knowledge: input.Knowledge,
		profiles:  input.Profiles,
		settings:  input.Settings,
		autoLearn: input.AutoLearn,

		profile:    p,
		transcript: model.Transcript{model.NewModelMessage(WelcomeText, nil)},
		learning:   newGroup(),
	}, nil
}

func newGroup() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(1)
	return g
}

// Profile returns a snapshot of the active agent
func (a *Assistant) Profile() *model.AgentProfile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// snapshot must be called with the lock held
func (a *Assistant) snapshot() *model.AgentProfile {
	p := *a.profile
	p.Skills = make([]*model.AgentSkill, len(a.profile.Skills))
	for i, s := range a.profile.Skills {
		skill := *s
		p.Skills[i] = &skill
	}
	return &p
}

// Bundle returns the capability bundle of the active agent
func (a *Assistant) Bundle() policy.Bundle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return policy.Resolve(a.profile.Type)
}

// Transcript returns a snapshot of the conversation
func (a *Assistant) Transcript() model.Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append(model.Transcript(nil), a.transcript...)
}

// Check evaluates the action policy for the active agent
func (a *Assistant) Check(ctx context.Context, action policy.Action) error {
	return a.gate.Check(ctx, action, a.Bundle())
}

// Send runs one conversation turn. The user message is appended before the
// remote call and the reply after it settles. A failing remote call still
// yields a reply (the fallback text); errors are returned only for an empty
// prompt, a denied action or a failure to persist the profile.
func (a *Assistant) Send(ctx context.Context, prompt string) (*model.ChatMessage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if err := a.Check(ctx, policy.ActionChat); err != nil {
		return nil, err
	}

	a.mu.Lock()
	history := append([]*model.ChatMessage(nil), a.transcript...)
	a.transcript = append(a.transcript, model.NewUserMessage(prompt))
	current := a.snapshot()
	a.mu.Unlock()

	reply := a.chat.Converse(ctx, current, a.knowledge, history, prompt)

	a.mu.Lock()
	a.transcript = append(a.transcript, reply)
	a.profile.TotalActions++
	err := a.profiles.Put(ctx, a.profile)
	a.mu.Unlock()
	if err != nil {
		return reply, goerr.Wrap(err, "failed to save agent profile")
	}

	if a.autoLearn && reply.Text != chat.FallbackText {
		a.scheduleLearning(ctx)
	}
	return reply, nil
}

func (a *Assistant) scheduleLearning(ctx context.Context) {
	bgCtx := context.WithoutCancel(ctx)
	started := a.learning.TryGo(func() error {
		_, err := a.Learn(bgCtx)
		if err != nil {
			logging.From(bgCtx).Warn("background learning failed", "error", err)
		}
		return err
	})
	if !started {
		logging.From(ctx).Debug("learning pass already running, skipped")
	}
}

// Wait blocks until scheduled learning passes finish. It returns the first
// error any pass of this session reported.
func (a *Assistant) Wait() error {
	return a.learning.Wait()
}

// Learn distills the current transcript and applies the result to the
// knowledge store and the active agent
func (a *Assistant) Learn(ctx context.Context) (*model.LearningResult, error) {
	transcript := a.Transcript()
	if len(transcript) <= 1 {
		return &model.LearningResult{}, nil
	}

	result := a.learner.Extract(ctx, transcript.Text(), a.knowledge.List())
	if result.IsEmpty() {
		return result, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.learner.Apply(ctx, a.knowledge, a.profile, result); err != nil {
		return nil, err
	}
	if len(result.SkillUpdates) > 0 {
		if err := a.profiles.Put(ctx, a.profile); err != nil {
			return nil, goerr.Wrap(err, "failed to save agent profile")
		}
	}
	return result, nil
}

// Research runs a research job on topic and merges the produced items
func (a *Assistant) Research(ctx context.Context, topic string) (*model.ResearchResult, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, ErrEmptyPrompt
	}
	if err := a.Check(ctx, policy.ActionResearch); err != nil {
		return nil, err
	}

	result := a.research.Research(ctx, topic)
	if len(result.Items) > 0 {
		if err := a.knowledge.AddAll(ctx, result.Items); err != nil {
			return result, goerr.Wrap(err, "failed to store research items", goerr.V("topic", topic))
		}
	}
	return result, nil
}

// Knowledge lists the knowledge base
func (a *Assistant) Knowledge() []*model.KnowledgeItem {
	return a.knowledge.List()
}

// AddKnowledge stores a hand-entered fact. Such facts are neutral, so they
// are listed but never injected into the reasoning context.
func (a *Assistant) AddKnowledge(ctx context.Context, cluster, content string) (*model.KnowledgeItem, error) {
	return a.knowledge.AddManual(ctx, cluster, content)
}

// RemoveKnowledge deletes one item by id
func (a *Assistant) RemoveKnowledge(ctx context.Context, id model.KnowledgeID) (bool, error) {
	return a.knowledge.Remove(ctx, id)
}

// DeployScript asks the agent for a complete deployment script for repoURL
// targeting the configured server
func (a *Assistant) DeployScript(ctx context.Context, repoURL, strategy string) (*model.ChatMessage, error) {
	if err := a.Check(ctx, policy.ActionDeploy); err != nil {
		return nil, err
	}

	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, goerr.New("repository URL is empty")
	}
	switch strategy {
	case "":
		strategy = StrategyDocker
	case StrategyDocker, StrategyNginx:
	default:
		return nil, goerr.Wrap(ErrInvalidStrategy, "unknown strategy", goerr.V("strategy", strategy))
	}

	conn, err := a.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := deployPromptTmpl.Execute(&buf, map[string]any{
		"RepoURL":  repoURL,
		"Strategy": strategy,
		"Target":   conn.Target(),
		"Port":     conn.Port,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute deploy prompt template")
	}

	return a.Send(ctx, buf.String())
}
