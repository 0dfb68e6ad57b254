// Package refresher keeps configured locations warm in the cache by
// recomputing their profiles on a schedule.
package refresher

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/levenlabs/go-lflag"
	"github.com/tiltcast/tiltcast/pkg/estimator"
	"github.com/tiltcast/tiltcast/pkg/log"
)

// Refresher periodically recomputes profiles for a fixed set of locations.
type Refresher struct {
	scheduler *gocron.Scheduler
	estimator *estimator.Service
	locations []string
	interval  time.Duration
}

// Configured sets up the refresher and its flags.
func Configured(est *estimator.Service) *Refresher {
	r := &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		estimator: est,
	}
	locations := lflag.String("refresh-locations", "", "comma-delimited list of locations to keep warm in the cache")
	interval := lflag.Duration("refresh-interval", 12*time.Hour, "How often to recompute the configured locations")

	lflag.Do(func() {
		if *locations != "" {
			r.locations = strings.Split(*locations, ",")
			for i, loc := range r.locations {
				r.locations[i] = strings.TrimSpace(loc)
			}
		}
		r.interval = *interval
	})

	return r
}

// Start schedules the periodic refresh job. With no locations configured it
// does nothing.
func (r *Refresher) Start(ctx context.Context) error {
	if len(r.locations) == 0 {
		log.Ctx(ctx).InfoContext(ctx, "no refresh locations configured")
		return nil
	}

	_, err := r.scheduler.Every(r.interval).Do(func() {
		r.refreshAll(ctx)
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).InfoContext(ctx, "starting refresher",
		slog.Int("locations", len(r.locations)),
		slog.Duration("interval", r.interval),
	)
	r.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	log.Ctx(ctx).InfoContext(ctx, "refreshing cached locations", slog.Int("count", len(r.locations)))

	var wg sync.WaitGroup
	for _, loc := range r.locations {
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()

			refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()

			if _, err := r.estimator.Refresh(refreshCtx, loc); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "refresh failed",
					slog.String("location", loc), slog.Any("error", err))
			}
		}(loc)
	}
	wg.Wait()

	log.Ctx(ctx).InfoContext(ctx, "refresh complete")
}
