package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/assistant"
	"github.com/urfave/cli/v3"
)

func deployCommand() *cli.Command {
	var (
		cfg      config
		strategy string
	)

	flags := flagSet(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "strategy",
				Aliases:     []string{"s"},
				Usage:       "Deploy strategy (docker, nginx)",
				Value:       assistant.StrategyDocker,
				Destination: &strategy,
			},
		},
		globalFlags(&cfg), llmFlags(&cfg), agentFlags(&cfg),
	)

	return &cli.Command{
		Name:      "deploy",
		Usage:     "Generate a deploy script for a git repository",
		ArgsUsage: "<repo-url>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repoURL := c.Args().First()
			if repoURL == "" {
				return goerr.New("repository URL is required")
			}

			ctx, err := cfg.withLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			s, err := cfg.openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			a, err := cfg.newAssistant(ctx, s, false)
			if err != nil {
				return err
			}

			reply, err := withSpinner("Генерирую скрипт...", func() (*model.ChatMessage, error) {
				return a.DeployScript(ctx, repoURL, strategy)
			})
			if err != nil {
				return err
			}
			printReply(c.Root().Writer, reply)
			return nil
		},
	}
}
