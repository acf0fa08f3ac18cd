package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chatinfra "github.com/boddenberg/stylist-bfa-go/internal/chat/infra"
	chatservice "github.com/boddenberg/stylist-bfa-go/internal/chat/service"
)

func newWorkerCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the chat memory summarization worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "worker goroutines (default WORKER_CONCURRENCY)")
	return cmd
}

func runWorker(ctx context.Context, concurrency int) error {
	a, err := newApp(ctx, "stylist-worker")
	if err != nil {
		return err
	}
	defer a.close()

	if concurrency <= 0 {
		concurrency = a.cfg.WorkerConcurrency
	}

	memory := chatservice.NewMemoryService(a.store, a.store, a.memory, a.openai, a.metrics, a.logger)
	srv := chatinfra.NewServer(a.redisOpt(), concurrency, a.logger)

	if err := srv.Start(chatinfra.NewMux(memory, a.logger)); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	a.logger.Info("worker started", zap.Int("concurrency", concurrency))

	<-ctx.Done()
	a.logger.Info("worker shutting down...")
	srv.Shutdown()
	return nil
}
