package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/policy"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/shell"
	"github.com/urfave/cli/v3"
)

// bundleChecker evaluates actions for a fixed agent bundle
type bundleChecker struct {
	gate   *policy.Gate
	bundle policy.Bundle
}

func (c *bundleChecker) Check(ctx context.Context, action policy.Action) error {
	return c.gate.Check(ctx, action, c.bundle)
}

func shellCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "shell",
		Usage: "Simulated terminal. Nothing is executed.",
		Flags: flagSet(globalFlags(&cfg), agentFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
				p, err := s.profiles.Find(cfg.agent)
				if err != nil {
					return goerr.Wrap(err, "failed to find agent")
				}
				gate, err := cfg.newGate(ctx)
				if err != nil {
					return err
				}

				term := shell.New(&bundleChecker{gate: gate, bundle: policy.Resolve(p.Type)})
				w := c.Root().Writer
				printLines(w, term.History())

				rl, err := readline.NewEx(&readline.Config{
					Prompt:          shell.Prompt,
					InterruptPrompt: "^C",
					EOFPrompt:       "exit",
				})
				if err != nil {
					return goerr.Wrap(err, "failed to initialize readline")
				}
				defer rl.Close()

				for {
					line, err := rl.Readline()
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						return nil
					}
					if err != nil {
						return goerr.Wrap(err, "failed to read input")
					}
					if strings.TrimSpace(line) == "exit" {
						return nil
					}

					out := term.Execute(ctx, line)
					if strings.EqualFold(strings.TrimSpace(line), "clear") {
						fmt.Fprint(w, "\033[H\033[2J")
						continue
					}
					// the echo is already on screen from readline
					if len(out) > 0 {
						printLines(w, out[1:])
					}
				}
			})
		},
	}
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
