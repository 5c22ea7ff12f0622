package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"motoexpress/config"
	"motoexpress/internal/database"
	"motoexpress/internal/queue"
	"motoexpress/internal/router"
	"motoexpress/internal/scheduler"
	"motoexpress/internal/ws"
	"motoexpress/pkg/cloudinary"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and live map",
	Long: `Start the HTTP API. With broker.enabled the server also consumes order
events so notifications reach the sockets it holds.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg, true)
	if err != nil {
		return err
	}
	defer database.Close(db)

	opts, cleanup, err := buildOptions(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	services := router.NewServices(cfg, db, opts)
	seedMap(ctx, services)
	engine := router.Setup(cfg, db, services)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Broker.Enabled {
		g.Go(func() error {
			return queue.Consume(gctx, cfg.Broker.URL, cfg.Broker.Queue, services.Notifications)
		})
	}
	g.Go(func() error {
		return scheduler.Run(gctx, maintenanceJobs(cfg, services)...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// buildOptions connects the optional outside services. The returned cleanup
// closes whatever was opened.
func buildOptions(ctx context.Context, cfg *config.Config) (router.Options, func(), error) {
	var (
		opts    router.Options
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		return opts, cleanup, err
	}
	opts.Cloud = cloud

	if rdb := openRedis(ctx, cfg.Redis); rdb != nil {
		opts.Redis = rdb
		closers = append(closers, func() { _ = rdb.Close() })
	}

	if cfg.Broker.Enabled {
		pub, err := queue.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Queue)
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}
		opts.Publisher = pub
		closers = append(closers, func() { _ = pub.Close() })
		log.Info().Str("queue", cfg.Broker.Queue).Msg("publishing order events to rabbitmq")
	}
	return opts, cleanup, nil
}

// seedMap loads the motoboys that were on the map before a restart.
func seedMap(ctx context.Context, s *router.Services) {
	list, err := s.Location.Available(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("could not seed live map")
		return
	}
	markers := make([]ws.MapMarker, 0, len(list))
	for _, m := range list {
		mk := ws.MapMarker{MotoboyID: m.ID, Name: m.Name, Lat: m.Lat, Lng: m.Lng, Available: true}
		if m.UpdatedAt != nil {
			mk.UpdatedAt = m.UpdatedAt.Unix()
		}
		markers = append(markers, mk)
	}
	s.Hub.Seed(markers)
	log.Info().Int("motoboys", len(markers)).Msg("live map seeded")
}
