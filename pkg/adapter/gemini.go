package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const DefaultGenerativeModel = "gemini-2.5-flash"

type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.generativeModel = model
		}
	}
}

// GeminiAuth selects the backend. An API key uses the Gemini Developer API;
// otherwise project and location select Vertex AI.
type GeminiAuth struct {
	APIKey   string
	Project  string
	Location string
}

func (a GeminiAuth) clientConfig() (*genai.ClientConfig, error) {
	if a.APIKey != "" {
		return &genai.ClientConfig{
			APIKey:  a.APIKey,
			Backend: genai.BackendGeminiAPI,
		}, nil
	}

	if a.Project == "" {
		return nil, goerr.New("either gemini API key or gemini project is required")
	}
	if a.Location == "" {
		return nil, goerr.New("gemini location is required for Vertex AI", goerr.V("project", a.Project))
	}
	return &genai.ClientConfig{
		Project:  a.Project,
		Location: a.Location,
		Backend:  genai.BackendVertexAI,
	}, nil
}

func NewGemini(ctx context.Context, auth GeminiAuth, opts ...GeminiOption) (*GeminiClient, error) {
	cfg, err := auth.clientConfig()
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: DefaultGenerativeModel,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Model returns the generative model identifier sent with every request
func (g *GeminiClient) Model() string {
	return g.generativeModel
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.generativeModel))
	}
	return resp, nil
}
