package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/policy"
	"github.com/urfave/cli/v3"
)

func agentCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "agent",
		Usage: "Inspect agent profiles",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List agents",
				Flags: flagSet(globalFlags(&cfg), agentFlags(&cfg)),
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
						w := tabwriter.NewWriter(c.Root().Writer, 0, 4, 2, ' ', 0)
						fmt.Fprintln(w, "ID\tNAME\tTYPE\tLEVEL\tACTIONS")
						for _, p := range s.profiles.List() {
							fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", p.ID, p.Name, p.Type, p.Level, p.TotalActions)
						}
						return w.Flush()
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Show an agent with its skills and policy",
				ArgsUsage: "[id-or-name]",
				Flags:     flagSet(globalFlags(&cfg), agentFlags(&cfg)),
				Action: func(ctx context.Context, c *cli.Command) error {
					ref := c.Args().First()
					if ref == "" {
						ref = cfg.agent
					}
					return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
						p, err := s.profiles.Find(ref)
						if err != nil {
							return goerr.Wrap(err, "failed to find agent")
						}
						printProfile(c.Root().Writer, p)
						return nil
					})
				},
			},
		},
	}
}

func printProfile(w io.Writer, p *model.AgentProfile) {
	bundle := policy.Resolve(p.Type)

	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "  Role:    %s\n", p.Role)
	fmt.Fprintf(w, "  Type:    %s\n", p.Type)
	fmt.Fprintf(w, "  Level:   %d (%d/%d XP)\n", p.Level, p.XP, p.NextLevelXP)
	fmt.Fprintf(w, "  Actions: %d\n", p.TotalActions)
	fmt.Fprintf(w, "  Search:  %t\n", bundle.AllowNetworkSearch)

	actions := make([]string, 0, len(bundle.AllowedActions))
	for _, action := range bundle.AllowedActions {
		actions = append(actions, string(action))
	}
	fmt.Fprintf(w, "  Allowed: %s\n", strings.Join(actions, ", "))

	if len(p.Skills) > 0 {
		fmt.Fprintln(w, "  Skills:")
		for _, skill := range p.Skills {
			fmt.Fprintf(w, "    - %s: level %d, %d%%\n", skill.Name, skill.Level, skill.Progress)
		}
	}
}
