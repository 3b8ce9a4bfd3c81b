package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/NAJJJB/subscription-tracker/internal/calendar"
	"github.com/NAJJJB/subscription-tracker/internal/metrics"
	"github.com/NAJJJB/subscription-tracker/internal/models"
)

const (
	triggerSchedule = "schedule"
	triggerManual   = "manual"

	defaultRunTimeout = 2 * time.Minute
)

var errNoWebhook = errors.New("user has no webhook configured")

type formatter interface {
	Format(job models.NotificationJob, now time.Time) models.Message
}

type dispatcher interface {
	Deliver(ctx context.Context, endpoint string, msg models.Message) error
}

// ledger remembers which subscriptions were already notified on a given day.
type ledger interface {
	Notified(ctx context.Context, subscriptionID int64, kind models.NotificationKind, day string) (bool, error)
	MarkNotified(ctx context.Context, subscriptionID int64, kind models.NotificationKind, day string) error
}

type Config struct {
	Schedule   string
	Location   *time.Location
	Workers    int
	RunTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// RunResult summarises one pipeline run. Due == Sent + Failed + Skipped.
type RunResult struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Notifier runs the renewal pipeline on a cron schedule and on demand.
type Notifier struct {
	scanner    *Scanner
	formatter  formatter
	dispatcher dispatcher
	ledger     ledger
	logger     zerolog.Logger
	cron       *cron.Cron
	cancel     context.CancelFunc
	m          *metrics.Metrics
	cfg        Config
}

// New constructs a Notifier with structured logging and metrics.
func New(
	scanner *Scanner,
	f formatter,
	d dispatcher,
	cfg Config,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Notifier {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Notifier{
		scanner:    scanner,
		formatter:  f,
		dispatcher: d,
		logger:     logger.With().Str("component", "Notifier").Logger(),
		cron:       cron.New(cron.WithLocation(cfg.Location)),
		m:          m,
		cfg:        cfg,
	}
}

// WithLedger enables suppression of repeat renewal notices on the same day.
func (n *Notifier) WithLedger(l ledger) *Notifier {
	n.ledger = l
	return n
}

// Start schedules the renewal pipeline.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	_, err := n.cron.AddFunc(n.cfg.Schedule, func() {
		n.m.CronJob(triggerSchedule, func() {
			if _, err := n.run(ctx, triggerSchedule); err != nil {
				n.logger.Error().Err(err).Msg("scheduled renewal run failed")
			}
		})
	})
	if err != nil {
		cancel()
		n.m.TechnicalErrors.WithLabelValues("cron_schedule_error", "critical").Inc()
		return fmt.Errorf("schedule renewal pipeline %q: %w", n.cfg.Schedule, err)
	}

	n.cron.Start()
	n.logger.Info().
		Str("schedule", n.cfg.Schedule).
		Str("location", n.cfg.Location.String()).
		Msg("renewal notifier started")
	return nil
}

// Stop cancels the scheduled job and waits for a running pipeline to finish.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	<-n.cron.Stop().Done()
	n.logger.Info().Msg("all cron jobs finished, notifier stopped")
}

// RunDue runs the renewal pipeline once, outside the schedule.
func (n *Notifier) RunDue(ctx context.Context) (RunResult, error) {
	var (
		res RunResult
		err error
	)
	n.m.CronJob(triggerManual, func() {
		res, err = n.run(ctx, triggerManual)
	})
	return res, err
}

// SendOne formats and delivers a single job. Delivery failures are returned,
// logged and counted but never retried.
func (n *Notifier) SendOne(ctx context.Context, job models.NotificationJob) error {
	if job.User.WebhookURL == "" {
		return errNoWebhook
	}

	start := time.Now()
	msg := n.formatter.Format(job, n.cfg.Now())
	err := n.dispatcher.Deliver(ctx, job.User.WebhookURL, msg)
	n.m.RecordDelivery(string(job.Kind), time.Since(start), err)

	if err != nil {
		n.logger.Warn().Err(err).
			Int64("subscription_id", job.Subscription.ID).
			Str("user_id", job.User.ID).
			Str("kind", string(job.Kind)).
			Msg("notification not delivered")
		return err
	}

	n.logger.Info().
		Int64("subscription_id", job.Subscription.ID).
		Str("user_id", job.User.ID).
		Str("kind", string(job.Kind)).
		Dur("duration", time.Since(start)).
		Msg("notification delivered")
	return nil
}

func (n *Notifier) run(ctx context.Context, trigger string) (RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	today := calendar.Today(n.cfg.Now(), n.cfg.Location)
	day := calendar.FormatDate(today)
	n.logger.Debug().Str("trigger", trigger).Str("day", day).Msg("starting renewal run")

	jobs, err := n.scanner.Scan(ctx, today)
	if err != nil {
		n.m.TechnicalErrors.WithLabelValues("scan_due_subscriptions", "critical").Inc()
		return RunResult{}, err
	}
	n.m.DueSubscriptions.Set(float64(len(jobs)))

	var sent, failed, skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(n.cfg.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			if n.alreadyNotified(ctx, job, day) {
				skipped.Add(1)
				return nil
			}
			if err := n.SendOne(ctx, job); err != nil {
				failed.Add(1)
				return nil
			}
			sent.Add(1)
			n.markNotified(ctx, job, day)
			return nil
		})
	}
	_ = g.Wait()

	res := RunResult{
		Due:     len(jobs),
		Sent:    int(sent.Load()),
		Failed:  int(failed.Load()),
		Skipped: int(skipped.Load()),
	}
	n.logger.Info().
		Str("trigger", trigger).
		Str("day", day).
		Int("due", res.Due).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Dur("duration", time.Since(start)).
		Msg("completed renewal run")
	return res, nil
}

func (n *Notifier) alreadyNotified(ctx context.Context, job models.NotificationJob, day string) bool {
	if n.ledger == nil {
		return false
	}
	done, err := n.ledger.Notified(ctx, job.Subscription.ID, job.Kind, day)
	if err != nil {
		n.logger.Error().Err(err).Int64("subscription_id", job.Subscription.ID).Msg("failed to read notification log")
		return false
	}
	return done
}

func (n *Notifier) markNotified(ctx context.Context, job models.NotificationJob, day string) {
	if n.ledger == nil {
		return
	}
	if err := n.ledger.MarkNotified(ctx, job.Subscription.ID, job.Kind, day); err != nil {
		n.logger.Error().Err(err).Int64("subscription_id", job.Subscription.ID).Msg("failed to record notification")
		n.m.TechnicalErrors.WithLabelValues("notification_log_write", "warning").Inc()
	}
}
