// Package broadcast fans an operator-authored urgent message out to every
// registered webhook.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NAJJJB/subscription-tracker/internal/metrics"
	"github.com/NAJJJB/subscription-tracker/internal/models"
)

var ErrInvalidInput = errors.New("title and message are required")

type webhookLister interface {
	ListWebhooks(ctx context.Context) ([]models.User, error)
}

type urgentFormatter interface {
	Urgent(title, text string, now time.Time) models.Message
}

type dispatcher interface {
	Deliver(ctx context.Context, endpoint string, msg models.Message) error
}

type alerter interface {
	Alert(title string, s Summary) error
}

// Summary never identifies which recipients failed.
type Summary struct {
	Sent   int `json:"sentCount"`
	Failed int `json:"failedCount"`
}

// Coordinator sends strictly one message at a time and waits the full delay
// after each send returns, across all broadcasts it runs.
type Coordinator struct {
	repo       webhookLister
	formatter  urgentFormatter
	dispatcher dispatcher
	delay      time.Duration
	sendBudget time.Duration
	alert      alerter
	logger     zerolog.Logger
	m          *metrics.Metrics

	// turn is held by the running broadcast; lastSend is guarded by it.
	turn     chan struct{}
	lastSend time.Time
}

func NewCoordinator(
	repo webhookLister,
	f urgentFormatter,
	d dispatcher,
	delay time.Duration,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Coordinator {
	return &Coordinator{
		repo:       repo,
		formatter:  f,
		dispatcher: d,
		delay:      delay,
		turn:       make(chan struct{}, 1),
		logger:     logger.With().Str("component", "BroadcastCoordinator").Logger(),
		m:          m,
	}
}

// WithAlert reports every finished broadcast to a staff channel.
func (c *Coordinator) WithAlert(a alerter) *Coordinator {
	c.alert = a
	return c
}

// WithSendBudget bounds a broadcast to recipients × (delay + budget) once it
// holds the turn. Zero leaves the run bounded only by the caller's context.
func (c *Coordinator) WithSendBudget(d time.Duration) *Coordinator {
	c.sendBudget = d
	return c
}

// Broadcast delivers the urgent message to every user with a webhook.
// If ctx ends mid-run the recipients not yet attempted count as failed and
// the context error is returned together with the summary.
func (c *Coordinator) Broadcast(ctx context.Context, title, text string) (Summary, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(text) == "" {
		return Summary{}, ErrInvalidInput
	}

	users, err := c.repo.ListWebhooks(ctx)
	if err != nil {
		c.m.TechnicalErrors.WithLabelValues("list_webhooks", "critical").Inc()
		return Summary{}, fmt.Errorf("list webhooks: %w", err)
	}

	select {
	case c.turn <- struct{}{}:
	case <-ctx.Done():
		c.logger.Warn().Err(ctx.Err()).Msg("broadcast cancelled while waiting for its turn")
		return Summary{Failed: len(users)}, fmt.Errorf("broadcast interrupted: %w", ctx.Err())
	}
	defer func() { <-c.turn }()

	if c.sendBudget > 0 && len(users) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(len(users))*(c.delay+c.sendBudget))
		defer cancel()
	}

	c.logger.Info().Int("recipients", len(users)).Str("title", title).Msg("starting broadcast")

	msg := c.formatter.Urgent(title, text, time.Now())

	var (
		s      Summary
		runErr error
	)
	for i, u := range users {
		if err := c.pause(ctx); err != nil {
			s.Failed += len(users) - i
			runErr = fmt.Errorf("broadcast interrupted: %w", err)
			c.logger.Warn().Err(err).Int("remaining", len(users)-i).Msg("broadcast interrupted")
			break
		}

		start := time.Now()
		err := c.dispatcher.Deliver(ctx, u.WebhookURL, msg)
		c.lastSend = time.Now()
		c.m.RecordDelivery(string(models.KindUrgent), c.lastSend.Sub(start), err)
		if err != nil {
			s.Failed++
			c.logger.Warn().Err(err).Str("user_id", u.ID).Msg("broadcast delivery failed")
			continue
		}
		s.Sent++
	}

	c.logger.Info().Int("sent", s.Sent).Int("failed", s.Failed).Msg("broadcast finished")
	c.notifyStaff(title, s)
	return s, runErr
}

// pause blocks until delay has passed since the previous send returned.
func (c *Coordinator) pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.delay <= 0 || c.lastSend.IsZero() {
		return nil
	}
	wait := time.Until(c.lastSend.Add(c.delay))
	if wait <= 0 {
		return nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Coordinator) notifyStaff(title string, s Summary) {
	if c.alert == nil {
		return
	}
	if err := c.alert.Alert(title, s); err != nil {
		c.logger.Warn().Err(err).Msg("failed to send staff alert")
	}
}
