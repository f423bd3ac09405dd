package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/adapter"
	"google.golang.org/genai"
)

func TestNewGeminiRequiresCredentials(t *testing.T) {
	ctx := context.Background()

	_, err := adapter.NewGemini(ctx, adapter.GeminiAuth{})
	gt.Error(t, err)

	_, err = adapter.NewGemini(ctx, adapter.GeminiAuth{Project: "p"})
	gt.Error(t, err)
}

func TestGenerateContent(t *testing.T) {
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, adapter.GeminiAuth{APIKey: apiKey})
	gt.NoError(t, err)
	gt.Equal(t, client.Model(), adapter.DefaultGenerativeModel)

	contents := []*genai.Content{
		genai.NewContentFromText("Hello, what is the capital of France?", genai.RoleUser),
	}

	resp, err := client.GenerateContent(ctx, contents, nil)
	gt.NoError(t, err)

	if resp == nil ||
		len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 ||
		resp.Candidates[0].Content.Parts[0].Text == "" {
		t.Fatal("unexpected response")
	}

	t.Log("response:", resp.Candidates[0].Content.Parts[0].Text)
}
