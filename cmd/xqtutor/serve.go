package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/xiangqi-tutor/internal/config"
	"github.com/park285/xiangqi-tutor/internal/obslog"
	"github.com/park285/xiangqi-tutor/internal/xqbuilder"
)

func Serve() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and the analysis websocket",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			log := obslog.L()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, err := xqbuilder.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			log.Info("serve_start",
				zap.String("engine", cfg.EnginePath),
				zap.Int("pool", deps.Pool.Capacity()),
				zap.String("http", cfg.HTTPAddr),
				zap.String("ws", cfg.WSAddr),
				zap.Bool("cache", deps.Cache != nil),
				zap.Bool("resolver", deps.Remote != nil),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return deps.Server.ListenAndServe(gctx, cfg.HTTPAddr) })
			g.Go(func() error { return deps.Server.ServeStream(gctx, cfg.WSAddr) })
			err = g.Wait()
			log.Info("serve_stop", zap.Error(err))
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
