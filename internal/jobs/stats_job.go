package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/metrics"
)

// OrderCounter is the slice of the ledger the stats job reads.
type OrderCounter interface {
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
}

// ConnectionCounter reports how many users hold a live channel.
type ConnectionCounter interface {
	Count() int
}

// StatsJob periodically refreshes the gauges that cannot be kept current
// incrementally: orders per status and registered channels.
type StatsJob struct {
	orders   OrderCounter
	conns    ConnectionCounter
	schedule string
	cron     *cron.Cron
	logger   zerolog.Logger
}

// NewStatsJob creates the job. schedule uses the six-field cron syntax with
// seconds, e.g. "*/30 * * * * *".
func NewStatsJob(orders OrderCounter, conns ConnectionCounter, schedule string, logger zerolog.Logger) *StatsJob {
	return &StatsJob{
		orders:   orders,
		conns:    conns,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With().Str("component", "stats_job").Logger(),
	}
}

// Start schedules the refresh and runs it once right away.
func (j *StatsJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.Refresh); err != nil {
		return err
	}
	j.Refresh()
	j.cron.Start()
	j.logger.Info().Str("schedule", j.schedule).Msg("stats job started")
	return nil
}

// Stop waits for a running refresh to finish.
func (j *StatsJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("stats job stopped")
}

// Refresh reads the ledger and the registry once.
func (j *StatsJob) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts, err := j.orders.CountByStatus(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to count orders")
	} else {
		for _, s := range []domain.OrderStatus{domain.StatusPending, domain.StatusAccepted, domain.StatusCompleted, domain.StatusCancelled} {
			metrics.OrdersByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
		}
	}

	metrics.ConnectionsActive.Set(float64(j.conns.Count()))
}
