package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"motoexpress/config"
	"motoexpress/internal/database"
	"motoexpress/internal/queue"
	"motoexpress/internal/router"
	"motoexpress/internal/scheduler"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Consume order events into notifications, expire unpaid checkouts and sweep stale motoboy locations.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg, false)
	if err != nil {
		return err
	}
	defer database.Close(db)

	services := router.NewServices(cfg, db, router.Options{})
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Broker.Enabled {
		g.Go(func() error {
			log.Info().Str("queue", cfg.Broker.Queue).Msg("consuming order events")
			return queue.Consume(gctx, cfg.Broker.URL, cfg.Broker.Queue, services.Notifications)
		})
	}
	g.Go(func() error {
		return scheduler.Run(gctx, maintenanceJobs(cfg, services)...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker error")
		return err
	}
	log.Info().Msg("worker stopped")
	return nil
}

// maintenanceJobs always expires stale checkouts; the location sweep runs only
// when location.stale_after is set.
func maintenanceJobs(cfg *config.Config, s *router.Services) []scheduler.Job {
	jobs := []scheduler.Job{{
		Name:     "expire-checkouts",
		Interval: time.Minute,
		Run:      s.Subscriptions.ExpireStale,
	}}
	if cfg.Location.StaleAfter > 0 {
		jobs = append(jobs, scheduler.Job{
			Name:     "stale-locations",
			Interval: cfg.Location.SweepInterval,
			Run:      s.Location.SweepStale,
		})
	}
	return jobs
}
