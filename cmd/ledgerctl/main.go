package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Emran025/supermarket-system-sub001/cmd/ledgerctl/cli"
	"github.com/Emran025/supermarket-system-sub001/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, release := cli.NewRootCommand(cli.Deps{Open: open})
	defer release()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		return 1
	}
	return 0
}

func open(ctx context.Context) (cli.Ledger, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	rt, err := app.Bootstrap(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return rt.Engine, rt.Close, nil
}
