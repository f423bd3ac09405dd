package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/assistant"
	"github.com/urfave/cli/v3"
)

func researchCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "research",
		Usage:     "Research a topic on the web and store the findings",
		ArgsUsage: "<topic>",
		Flags:     flagSet(globalFlags(&cfg), llmFlags(&cfg), agentFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			topic := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if topic == "" {
				return goerr.New("topic is required")
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

			result, err := withSpinner("Исследую...", func() (*model.ResearchResult, error) {
				return a.Research(ctx, topic)
			})
			if err != nil {
				return err
			}
			printResearch(c.Root().Writer, result)
			return nil
		},
	}
}

func knowledgeCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:    "knowledge",
		Aliases: []string{"kb"},
		Usage:   "Manage the knowledge base",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List knowledge items",
				Flags: globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
						w := tabwriter.NewWriter(c.Root().Writer, 0, 4, 2, ' ', 0)
						fmt.Fprintln(w, "ID\tCLUSTER\tTYPE\tCONF\tCONTENT")
						for _, item := range s.knowledge.List() {
							fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", item.ID, item.Cluster, item.Type, item.Confidence, item.Content)
						}
						return w.Flush()
					})
				},
			},
			{
				Name:      "add",
				Usage:     "Add a fact entered by hand",
				ArgsUsage: "<content>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "cluster",
						Usage: "Cluster of the fact",
						Value: assistant.UserCluster,
					},
				}, globalFlags(&cfg)...),
				Action: func(ctx context.Context, c *cli.Command) error {
					content := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
					if content == "" {
						return goerr.New("content is required")
					}
					return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
						item, err := s.knowledge.AddManual(ctx, c.String("cluster"), content)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.Root().Writer, "%s\n", item.ID)
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a knowledge item",
				ArgsUsage: "<id>",
				Flags:     globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					id := model.KnowledgeID(c.Args().First())
					if id == "" {
						return goerr.New("id is required")
					}
					return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
						removed, err := s.knowledge.Remove(ctx, id)
						if err != nil {
							return err
						}
						if !removed {
							return goerr.New("knowledge item not found", goerr.V("id", id))
						}
						return nil
					})
				},
			},
		},
	}
}

// withStores runs fn with loaded stores and a configured logger
func withStores(ctx context.Context, c *cli.Command, cfg *config, fn func(context.Context, *stores) error) error {
	ctx, err := cfg.withLogger(ctx, c.Root().ErrWriter)
	if err != nil {
		return err
	}
	s, err := cfg.openStores(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s)
}
