package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tabakopt77-hue/ai-platfoema/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Run(ctx, os.Args)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Message)
		os.Exit(err.Code)
	}
}
