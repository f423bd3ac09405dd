package chat_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/repository"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/service/reasoning"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/chat"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/knowledge"
)

type mockReasoning struct {
	reasonFunc func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error)
}

func (m *mockReasoning) Reason(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
	return m.reasonFunc(ctx, req)
}

func newKnowledge(t *testing.T) *knowledge.Store {
	t.Helper()
	ctx := context.Background()
	store := knowledge.New(repository.NewMemory())
	gt.NoError(t, store.AddAll(ctx, []*model.KnowledgeItem{
		{Cluster: "Docker", Content: "use multi-stage builds", Type: model.KnowledgeTypeBeneficial},
		{Cluster: "Docker", Content: "pin base image digests", Type: model.KnowledgeTypeBeneficial},
		{Cluster: "Security", Content: "disable host-key checks", Type: model.KnowledgeTypeHarmful},
	}))
	return store
}

func TestConverseBuildsContext(t *testing.T) {
	var got *reasoning.Request
	engine := chat.New(&mockReasoning{
		reasonFunc: func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
			got = req
			return &reasoning.Response{
				Text:    "Готово",
				Sources: []model.Source{{URI: "https://docs.docker.com", Title: "Docker"}},
			}, nil
		},
	}, chat.WithLanguage("English"))

	profile := model.NewAgentProfile("Operator", "Deployment engineer", model.AgentTypeUserSide)
	profile.GainSkillXP("Docker", 250)

	history := []*model.ChatMessage{model.NewUserMessage("hi"), model.NewModelMessage("hello", nil)}
	msg := engine.Converse(context.Background(), profile, newKnowledge(t), history, "deploy my app")

	gt.Equal(t, msg.Role, model.RoleModel)
	gt.Equal(t, msg.Text, "Готово")
	gt.A(t, msg.Sources).Length(1)

	gt.V(t, got).NotNil()
	gt.True(t, got.AllowSearch)
	gt.Equal(t, got.Prompt, "deploy my app")
	gt.A(t, got.History).Length(2)

	instruction := got.SystemInstruction
	gt.S(t, instruction).Contains("Operator")
	gt.S(t, instruction).Contains("Deployment engineer")
	gt.S(t, instruction).Contains("USER_SIDE")
	gt.S(t, instruction).Contains("host-key verification")
	gt.S(t, instruction).Contains("Docker (level 3)")
	gt.S(t, instruction).Contains("Docker: use multi-stage builds; pin base image digests")
	gt.S(t, instruction).NotContains("disable host-key checks")
	gt.S(t, instruction).Contains("answer in English")
}

func TestConverseWatchdog(t *testing.T) {
	var got *reasoning.Request
	engine := chat.New(&mockReasoning{
		reasonFunc: func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
			got = req
			return &reasoning.Response{
				Text:    "I am an internal watchdog.",
				Sources: []model.Source{{URI: "https://example.com"}},
			}, nil
		},
	})

	profile := model.NewAgentProfile("Sentinel", "Internal monitor", model.AgentTypeWatchdog)
	msg := engine.Converse(context.Background(), profile, nil, nil, "ssh into prod")

	gt.False(t, got.AllowSearch)
	gt.S(t, got.SystemInstruction).Contains("NO internet access")
	gt.S(t, got.SystemInstruction).Contains("answer in Russian")
	gt.Equal(t, msg.Text, "I am an internal watchdog.")
	gt.A(t, msg.Sources).Length(0)
}

func TestConverseFallback(t *testing.T) {
	profile := model.NewAgentProfile("Operator", "Engineer", model.AgentTypeUserSide)

	t.Run("remote error", func(t *testing.T) {
		engine := chat.New(&mockReasoning{
			reasonFunc: func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
				return nil, goerr.New("API key not valid")
			},
		})
		msg := engine.Converse(context.Background(), profile, nil, nil, "hello")
		gt.V(t, msg).NotNil()
		gt.Equal(t, msg.Role, model.RoleModel)
		gt.Equal(t, msg.Text, chat.FallbackText)
		gt.A(t, msg.Sources).Length(0)
		gt.NotEqual(t, msg.ID, model.MessageID(""))
	})

	t.Run("blank reply", func(t *testing.T) {
		engine := chat.New(&mockReasoning{
			reasonFunc: func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
				return &reasoning.Response{Text: "   "}, nil
			},
		})
		msg := engine.Converse(context.Background(), profile, nil, nil, "hello")
		gt.Equal(t, msg.Text, chat.FallbackText)
	})

	t.Run("no profile", func(t *testing.T) {
		engine := chat.New(&mockReasoning{
			reasonFunc: func(ctx context.Context, req *reasoning.Request) (*reasoning.Response, error) {
				t.Error("reasoning service must not be called")
				return nil, nil
			},
		})
		msg := engine.Converse(context.Background(), nil, nil, nil, "hello")
		gt.Equal(t, msg.Text, chat.FallbackText)
	})
}
