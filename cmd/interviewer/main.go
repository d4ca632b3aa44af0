package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Proton-105/interview-coach/pkg/config"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewer",
		Short: "Mock interview coach over HTTP and Telegram",
		Long: `interviewer walks a candidate through a mock interview:
self-introduction, introduction analysis, question and answer rounds and a
closing summary. State lives in Redis or memory, the conversation log in
SQLite or PostgreSQL.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./configs/$APP_ENV.yaml)")

	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
