package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"watchlist/pkg/broker"
	"watchlist/pkg/cache"
	"watchlist/pkg/config"
	"watchlist/pkg/envelope"
	"watchlist/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Tail watchlist events published on Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RedisURL == "" {
				return errors.New("events requires REDIS_URL")
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			b := broker.New(rdb.Client(), cfg.EventsChannel, serviceName, log)
			b.On(broker.AnyAction, func(env envelope.Envelope) {
				entry := log.WithFields(logrus.Fields{
					"id":      env.ID,
					"action":  env.Action,
					"service": env.Service,
					"user_id": env.UserID,
				})
				if len(env.Data) > 0 {
					data, err := envelope.ParseData[map[string]interface{}](env)
					if err != nil {
						entry.WithError(err).Warn("event with undecodable data")
						return
					}
					entry = entry.WithField("data", data)
				}
				entry.Info("event")
			})

			closeSub, err := b.Subscribe(ctx)
			if err != nil {
				return err
			}
			defer closeSub()

			log.Infof("[EVENTS] listening on %s", cfg.EventsChannel)
			<-ctx.Done()
			return nil
		},
	}
}
