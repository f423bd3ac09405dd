package cli

import (
	"context"

	"github.com/tabakopt77-hue/ai-platfoema/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := flagSet(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "Serve streamable HTTP on this address instead of stdio",
				Sources:     cli.EnvVars("NEXUSOPS_MCP_ADDR"),
				Destination: &addr,
			},
		},
		globalFlags(&cfg), llmFlags(&cfg), agentFlags(&cfg),
	)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose the knowledge base and the active agent as MCP tools",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.withLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			s, err := cfg.openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			a, err := cfg.newAssistant(ctx, s, true)
			if err != nil {
				return err
			}
			defer func() { _ = a.Wait() }()

			return mcp.Serve(ctx, mcp.NewServer(a, Version), addr)
		},
	}
}
