// Package reasoning is the boundary to the hosted generative model. It turns
// one request (system instruction, prior turns, prompt, capability flags)
// into a Gemini call and returns the reply text with its grounding citations.
package reasoning

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/adapter"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
	"google.golang.org/genai"
)

var (
	ErrEmptyReply = goerr.New("model returned no text")
)

// Request is a single call to the reasoning service
type Request struct {
	SystemInstruction string
	History           []*model.ChatMessage
	Prompt            string

	// AllowSearch attaches the Google Search tool and collects citations
	AllowSearch bool

	// ResponseSchema asks for a JSON reply. It is ignored when AllowSearch is
	// set because Gemini rejects a JSON MIME type together with tools.
	ResponseSchema *genai.Schema
}

// Response is the reply text and, for search-enabled calls, its citations
type Response struct {
	Text    string
	Sources []model.Source
}

// Service answers reasoning requests
type Service interface {
	Reason(ctx context.Context, req *Request) (*Response, error)
}

type gemini struct {
	client adapter.Gemini
}

// New creates a Service backed by Gemini
func New(client adapter.Gemini) Service {
	return &gemini{client: client}
}

func (x *gemini) Reason(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, goerr.New("prompt is empty")
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, "")
	}

	switch {
	case req.AllowSearch:
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case req.ResponseSchema != nil:
		thinkingBudget := int32(0)
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.ResponseSchema
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		}
	}

	contents := buildContents(req.History, req.Prompt)

	logging.From(ctx).Debug("calling reasoning service",
		"turns", len(contents),
		"search", req.AllowSearch,
		"structured", config.ResponseSchema != nil,
	)

	resp, err := x.client.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content")
	}

	text := replyText(resp)
	if text == "" {
		return nil, goerr.Wrap(ErrEmptyReply, "invalid response structure from gemini")
	}

	out := &Response{Text: text}
	if req.AllowSearch {
		out.Sources = groundingSources(resp)
	}
	return out, nil
}

// buildContents converts the transcript to Gemini turns. Gemini requires the
// conversation to open with a user turn, so leading model turns (such as a
// welcome message) and empty messages are skipped.
func buildContents(history []*model.ChatMessage, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		if msg == nil || msg.Text == "" {
			continue
		}
		var role genai.Role = genai.RoleUser
		if msg.Role == model.RoleModel {
			if len(contents) == 0 {
				continue
			}
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

func groundingSources(resp *genai.GenerateContentResponse) []model.Source {
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	var sources []model.Source
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, model.Source{
			URI:   chunk.Web.URI,
			Title: chunk.Web.Title,
		})
	}
	return sources
}
