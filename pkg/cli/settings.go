package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func settingsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "settings",
		Usage: "Remote server used in generated deploy scripts",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the connection settings",
				Flags: globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
						settings, err := s.settings.Load(ctx)
						if err != nil {
							return err
						}
						redacted := settings.Redacted()
						w := c.Root().Writer
						fmt.Fprintf(w, "Host:     %s\n", redacted.Host)
						fmt.Fprintf(w, "Port:     %s\n", redacted.Port)
						fmt.Fprintf(w, "Username: %s\n", redacted.Username)
						fmt.Fprintf(w, "Secret:   %s\n", redacted.PasswordOrKey)
						fmt.Fprintf(w, "Target:   %s\n", redacted.Target())
						return nil
					})
				},
			},
			{
				Name:  "set",
				Usage: "Update the connection settings. Unset flags keep their value.",
				Flags: flagSet([]cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "Server address"},
					&cli.StringFlag{Name: "port", Usage: "SSH port"},
					&cli.StringFlag{Name: "user", Usage: "SSH username"},
					&cli.StringFlag{
						Name:    "secret",
						Usage:   "Password or key. It is stored as is.",
						Sources: cli.EnvVars("NEXUSOPS_SSH_SECRET"),
					},
				}, globalFlags(&cfg)),
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStores(ctx, c, &cfg, func(ctx context.Context, s *stores) error {
						settings, err := s.settings.Load(ctx)
						if err != nil {
							return err
						}
						if c.IsSet("host") {
							settings.Host = c.String("host")
						}
						if c.IsSet("port") {
							settings.Port = c.String("port")
						}
						if c.IsSet("user") {
							settings.Username = c.String("user")
						}
						if c.IsSet("secret") {
							settings.PasswordOrKey = c.String("secret")
						}
						return s.settings.Save(ctx, settings)
					})
				},
			},
		},
	}
}
