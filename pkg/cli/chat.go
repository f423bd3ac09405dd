package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/assistant"
	"github.com/urfave/cli/v3"
)

const chatHelp = `Commands:
  /learn               distill the conversation into knowledge and skill XP
  /research <topic>    research a topic on the web and store the findings
  /deploy <repo> [docker|nginx]
                       generate a deploy script for the configured server
  /agent               show the active agent
  exit                 quit`

func chatCommand() *cli.Command {
	var (
		cfg       config
		autoLearn bool
	)

	flags := flagSet(
		[]cli.Flag{
			&cli.BoolFlag{
				Name:        "auto-learn",
				Usage:       "Learn from the conversation in the background after every reply",
				Value:       true,
				Sources:     cli.EnvVars("NEXUSOPS_AUTO_LEARN"),
				Destination: &autoLearn,
			},
		},
		globalFlags(&cfg), llmFlags(&cfg), agentFlags(&cfg),
	)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation with the active agent",
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

			a, err := cfg.newAssistant(ctx, s, autoLearn)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Wait(); err != nil {
					fmt.Fprintf(c.Root().ErrWriter, "background learning failed: %v\n", err)
				}
			}()

			w := c.Root().Writer
			p := a.Profile()
			fmt.Fprintf(w, "[%s / %s] %s\n\n", p.Name, p.Type, assistant.WelcomeText)

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "" {
					continue
				}
				if message == "exit" || message == "quit" {
					break
				}

				if err := handleChatLine(ctx, w, a, message); err != nil {
					fmt.Fprintf(w, "Ошибка: %v\n", err)
				}
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

func handleChatLine(ctx context.Context, w io.Writer, a *assistant.Assistant, message string) error {
	if !strings.HasPrefix(message, "/") {
		reply, err := withSpinner("Думаю...", func() (*model.ChatMessage, error) {
			return a.Send(ctx, message)
		})
		if err != nil {
			return err
		}
		printReply(w, reply)
		return nil
	}

	cmd, arg, _ := strings.Cut(message, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Fprintln(w, chatHelp)

	case "/agent":
		printProfile(w, a.Profile())

	case "/learn":
		result, err := withSpinner("Анализирую диалог...", func() (*model.LearningResult, error) {
			return a.Learn(ctx)
		})
		if err != nil {
			return err
		}
		printLearning(w, result)

	case "/research":
		if arg == "" {
			return goerr.New("topic is required")
		}
		result, err := withSpinner("Исследую...", func() (*model.ResearchResult, error) {
			return a.Research(ctx, arg)
		})
		if err != nil {
			return err
		}
		printResearch(w, result)

	case "/deploy":
		fields := strings.Fields(arg)
		if len(fields) == 0 {
			return goerr.New("repository URL is required")
		}
		strategy := ""
		if len(fields) > 1 {
			strategy = fields[1]
		}
		reply, err := withSpinner("Генерирую скрипт...", func() (*model.ChatMessage, error) {
			return a.DeployScript(ctx, fields[0], strategy)
		})
		if err != nil {
			return err
		}
		printReply(w, reply)

	default:
		fmt.Fprintln(w, chatHelp)
	}
	return nil
}

func askCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a single message to the active agent",
		ArgsUsage: "<message>",
		Flags:     flagSet(globalFlags(&cfg), llmFlags(&cfg), agentFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			message := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(message) == "" {
				return goerr.New("message is required")
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

			reply, err := withSpinner("Думаю...", func() (*model.ChatMessage, error) {
				return a.Send(ctx, message)
			})
			if err != nil {
				return err
			}
			printReply(c.Root().Writer, reply)
			return nil
		},
	}
}

// withSpinner shows a spinner on stderr while fn runs
func withSpinner[T any](label string, fn func() (T, error)) (T, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " " + label
	sp.Start()
	defer sp.Stop()
	return fn()
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nexusops_history")
}

func printReply(w io.Writer, reply *model.ChatMessage) {
	fmt.Fprintf(w, "%s\n", reply.Text)
	if len(reply.Sources) > 0 {
		fmt.Fprintln(w, "\nИсточники:")
		for _, src := range reply.Sources {
			fmt.Fprintf(w, "  - %s (%s)\n", src.Title, src.URI)
		}
	}
	fmt.Fprintln(w)
}

func printLearning(w io.Writer, result *model.LearningResult) {
	if result.IsEmpty() {
		fmt.Fprintln(w, "Новых знаний не найдено.")
		return
	}
	for _, fact := range result.Facts {
		fmt.Fprintf(w, "+ %s\n", fact)
	}
	for _, u := range result.SkillUpdates {
		fmt.Fprintf(w, "+%d XP %s\n", u.XPGained, u.SkillName)
	}
}

func printResearch(w io.Writer, result *model.ResearchResult) {
	fmt.Fprintf(w, "%s\n", result.Summary)
	for _, item := range result.Items {
		fmt.Fprintf(w, "  [%s/%s %d%%] %s\n", item.Cluster, item.Type, item.Confidence, item.Content)
	}
	fmt.Fprintf(w, "Обработано: %d\n", result.ProcessedCount)
}
