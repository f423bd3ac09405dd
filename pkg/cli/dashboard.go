package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tabakopt77-hue/ai-platfoema/pkg/model"
	"github.com/tabakopt77-hue/ai-platfoema/pkg/usecase/dashboard"
	"github.com/urfave/cli/v3"
)

func dashboardCommand() *cli.Command {
	var (
		interval time.Duration
		ticks    int64
	)

	return &cli.Command{
		Name:  "dashboard",
		Usage: "Show the mock server inventory and live utilization",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:        "interval",
				Usage:       "Refresh interval",
				Value:       dashboard.DefaultInterval,
				Destination: &interval,
			},
			&cli.IntFlag{
				Name:        "ticks",
				Usage:       "Stop after this many refreshes, 0 runs until interrupted",
				Destination: &ticks,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			w := c.Root().Writer
			printServers(w, dashboard.Servers())

			sampler := dashboard.New()
			printSample(w, sampler.Window())

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			var count int64
			sampler.Run(ctx, interval, func(window []model.MetricSample) {
				printSample(w, window)
				count++
				if ticks > 0 && count >= ticks {
					cancel()
				}
			})
			return nil
		},
	}
}

func printServers(w io.Writer, servers []model.ServerNode) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tIP\tREGION")
	for _, s := range servers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Status, s.IP, s.Region)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

func printSample(w io.Writer, window []model.MetricSample) {
	if len(window) == 0 {
		return
	}
	latest := window[len(window)-1]
	fmt.Fprintf(w, "%s  cpu %3d%% %-20s mem %3d%% %-20s net %3d\n",
		latest.Time.Format("15:04:05"),
		latest.CPU, bar(latest.CPU),
		latest.Memory, bar(latest.Memory),
		latest.Network,
	)
}

func bar(percent int) string {
	n := min(max(percent/5, 0), 20)
	return strings.Repeat("#", n)
}
