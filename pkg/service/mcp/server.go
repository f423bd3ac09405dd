package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/utils/logging"
)

const serverName = "nexusops"

// Backend is the part of the assistant exposed as MCP tools
type Backend interface {
	Knowledge() []*model.KnowledgeItem
	AddKnowledge(ctx context.Context, cluster, content string) (*model.KnowledgeItem, error)
	RemoveKnowledge(ctx context.Context, id model.KnowledgeID) (bool, error)
	Research(ctx context.Context, topic string) (*model.ResearchResult, error)
	Send(ctx context.Context, prompt string) (*model.ChatMessage, error)
}

type knowledgeListParams struct {
	Cluster string `json:"cluster,omitempty" jsonschema:"Only return items of this cluster"`
}

type knowledgeAddParams struct {
	Cluster string `json:"cluster,omitempty" jsonschema:"Cluster name, defaults to Project"`
	Content string `json:"content" jsonschema:"Fact to remember"`
}

type knowledgeRemoveParams struct {
	ID string `json:"id" jsonschema:"ID of the knowledge item"`
}

type researchParams struct {
	Topic string `json:"topic" jsonschema:"Topic to research on the web"`
}

type askParams struct {
	Prompt string `json:"prompt" jsonschema:"Message for the active agent"`
}

// NewServer registers the knowledge and agent tools of backend on a new MCP
// server
func NewServer(backend Backend, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "knowledge_list",
		Description: "List items of the knowledge base",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params knowledgeListParams) (*mcp.CallToolResult, any, error) {
		items := backend.Knowledge()
		if params.Cluster != "" {
			filtered := make([]*model.KnowledgeItem, 0, len(items))
			for _, item := range items {
				if strings.EqualFold(item.Cluster, params.Cluster) {
					filtered = append(filtered, item)
				}
			}
			items = filtered
		}
		return jsonResult(ctx, items)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "knowledge_add",
		Description: "Add a fact to the knowledge base",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params knowledgeAddParams) (*mcp.CallToolResult, any, error) {
		item, err := backend.AddKnowledge(ctx, params.Cluster, params.Content)
		if err != nil {
			return errorResult(ctx, "knowledge_add", err), nil, nil
		}
		return jsonResult(ctx, item)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "knowledge_remove",
		Description: "Remove a knowledge item by ID",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params knowledgeRemoveParams) (*mcp.CallToolResult, any, error) {
		removed, err := backend.RemoveKnowledge(ctx, model.KnowledgeID(params.ID))
		if err != nil {
			return errorResult(ctx, "knowledge_remove", err), nil, nil
		}
		return jsonResult(ctx, map[string]any{"id": params.ID, "removed": removed})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "research",
		Description: "Research a topic on the web and store the findings",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params researchParams) (*mcp.CallToolResult, any, error) {
		result, err := backend.Research(ctx, params.Topic)
		if err != nil {
			return errorResult(ctx, "research", err), nil, nil
		}
		return jsonResult(ctx, result)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Send a message to the active agent and return its reply",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params askParams) (*mcp.CallToolResult, any, error) {
		reply, err := backend.Send(ctx, params.Prompt)
		if err != nil {
			return errorResult(ctx, "ask", err), nil, nil
		}
		return textResult(reply.Text), nil, nil
	})

	return server
}

// Serve runs server over stdio, or over streamable HTTP when addr is set,
// until ctx is cancelled
func Serve(ctx context.Context, server *mcp.Server, addr string) error {
	if addr == "" {
		if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return goerr.Wrap(err, "MCP stdio server failed")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.From(ctx).Warn("failed to shutdown MCP server", "error", err)
		}
	}()

	logging.From(ctx).Info("MCP server listening", "addr", addr)
	err := httpServer.ListenAndServe()
	cancel()
	<-stopped

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return goerr.Wrap(err, "MCP HTTP server failed", goerr.V("addr", addr))
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(ctx context.Context, v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(ctx, "encode", err), nil, nil
	}
	return textResult(string(raw)), nil, nil
}

func errorResult(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	logging.From(ctx).Warn("MCP tool failed", "tool", tool, "error", err)
	result := textResult(err.Error())
	result.IsError = true
	return result
}
