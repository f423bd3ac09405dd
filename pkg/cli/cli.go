package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Version is reported by the MCP server and --version
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "nexusops",
		Usage:   "DevOps assistant with a self-learning knowledge base",
		Version: Version,
		Commands: []*cli.Command{
			chatCommand(),
			askCommand(),
			researchCommand(),
			knowledgeCommand(),
			agentCommand(),
			settingsCommand(),
			deployCommand(),
			shellCommand(),
			dashboardCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
