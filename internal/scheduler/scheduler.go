// Package scheduler runs the periodic maintenance jobs of the worker and server.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Job is one periodic task. Run reports how many records it touched.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Run schedules jobs and blocks until ctx is done. A job still running when its
// next turn comes is not started twice.
func Run(ctx context.Context, jobs ...Job) error {
	if len(jobs) == 0 {
		return errors.New("scheduler: no jobs")
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	for _, j := range jobs {
		j := j
		if j.Interval <= 0 {
			j.Interval = time.Minute
		}
		_, err := sched.NewJob(
			gocron.DurationJob(j.Interval),
			gocron.NewTask(func() {
				n, err := j.Run(ctx)
				if err != nil {
					log.Error().Err(err).Str("job", j.Name).Msg("scheduled job failed")
					return
				}
				log.Debug().Str("job", j.Name).Int("affected", n).Msg("scheduled job done")
			}),
			gocron.WithName(j.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return err
		}
		log.Info().Str("job", j.Name).Dur("interval", j.Interval).Msg("job scheduled")
	}
	sched.Start()

	<-ctx.Done()
	return sched.Shutdown()
}
