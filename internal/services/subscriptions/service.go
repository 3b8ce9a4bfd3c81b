// Package subscriptions implements the user-facing subscription operations.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/NAJJJB/subscription-tracker/internal/calendar"
	"github.com/NAJJJB/subscription-tracker/internal/metrics"
	"github.com/NAJJJB/subscription-tracker/internal/models"
)

const currencyLen = 3

var ErrInvalidInput = errors.New("invalid input")

type repository interface {
	UpsertUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	SetWebhook(ctx context.Context, userID, url string) error
	SetCurrency(ctx context.Context, userID, currency string) error
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	UpdateSubscription(ctx context.Context, userID, oldName string, sub models.Subscription) error
	DeleteSubscription(ctx context.Context, userID, name string) error
	ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error)
}

type notifier interface {
	SendOne(ctx context.Context, job models.NotificationJob) error
}

// Dashboard is a user's subscription list with its spend normalised to a
// month and a year.
type Dashboard struct {
	User          models.User
	Subscriptions []models.Subscription
	MonthlyTotal  decimal.Decimal
	YearlyTotal   decimal.Decimal
}

type Service struct {
	repo           repository
	notifier       notifier
	notifyOnCreate bool
	logger         zerolog.Logger
	m              *metrics.Metrics
}

func NewService(
	repo repository,
	n notifier,
	notifyOnCreate bool,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:           repo,
		notifier:       n,
		notifyOnCreate: notifyOnCreate,
		logger:         logger.With().Str("component", "SubscriptionService").Logger(),
		m:              m,
	}
}

// RegisterUser records the user on first login. Later calls are no-ops.
func (s *Service) RegisterUser(ctx context.Context, id, name string) error {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.repo.UpsertUser(ctx, models.User{ID: id, Name: name})
}

func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	monthly, yearly := calendar.Totals(subs)
	return Dashboard{
		User:          u,
		Subscriptions: subs,
		MonthlyTotal:  monthly,
		YearlyTotal:   yearly,
	}, nil
}

// Create stores a subscription and, when enabled, immediately tells the
// owner's webhook about it. A failed notice never fails the create.
func (s *Service) Create(ctx context.Context, userID string, in models.SubscriptionInput) (models.Subscription, error) {
	sub, err := parseInput(userID, in)
	if err != nil {
		return models.Subscription{}, err
	}

	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return models.Subscription{}, err
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return models.Subscription{}, err
	}
	sub.ID = id
	s.m.SubscriptionsChanged.WithLabelValues("create").Inc()

	if s.notifyOnCreate && u.WebhookURL != "" {
		job := models.NotificationJob{Subscription: sub, User: u, Kind: models.KindNew}
		if err := s.notifier.SendOne(ctx, job); err != nil {
			s.logger.Warn().Err(err).
				Int64("subscription_id", id).
				Msg("new subscription notice not delivered")
		}
	}

	return sub, nil
}

// Update replaces every field of the subscription currently named oldName.
func (s *Service) Update(ctx context.Context, userID, oldName string, in models.SubscriptionInput) (models.Subscription, error) {
	sub, err := parseInput(userID, in)
	if err != nil {
		return models.Subscription{}, err
	}
	if err := s.repo.UpdateSubscription(ctx, userID, oldName, sub); err != nil {
		return models.Subscription{}, err
	}
	s.m.SubscriptionsChanged.WithLabelValues("update").Inc()
	return sub, nil
}

func (s *Service) Delete(ctx context.Context, userID, name string) error {
	if err := s.repo.DeleteSubscription(ctx, userID, name); err != nil {
		return err
	}
	s.m.SubscriptionsChanged.WithLabelValues("delete").Inc()
	return nil
}

// SetWebhook stores the user's endpoint. An empty URL disables notifications.
func (s *Service) SetWebhook(ctx context.Context, userID, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: webhook must be an absolute http(s) URL", ErrInvalidInput)
		}
	}
	return s.repo.SetWebhook(ctx, userID, rawURL)
}

func (s *Service) SetCurrency(ctx context.Context, userID, currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != currencyLen || strings.IndexFunc(currency, notLetter) >= 0 {
		return fmt.Errorf("%w: currency must be a three-letter code", ErrInvalidInput)
	}
	return s.repo.SetCurrency(ctx, userID, currency)
}

func notLetter(r rune) bool {
	return r < 'A' || r > 'Z'
}

func parseInput(userID string, in models.SubscriptionInput) (models.Subscription, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Subscription{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || price.IsNegative() {
		return models.Subscription{}, fmt.Errorf("%w: price must be a non-negative number", ErrInvalidInput)
	}

	freq := models.Frequency(in.Frequency)
	if in.Frequency != "" && !freq.Valid() {
		return models.Subscription{}, fmt.Errorf("%w: unknown renewal frequency %q", ErrInvalidInput, in.Frequency)
	}

	sub := models.Subscription{
		UserID:    userID,
		Name:      name,
		Price:     price,
		Frequency: freq.OrDefault(),
	}

	if in.RenewsAt != "" {
		d, err := calendar.ParseDate(in.RenewsAt)
		if err != nil {
			return models.Subscription{}, fmt.Errorf("%w: renewal date must be YYYY-MM-DD", ErrInvalidInput)
		}
		sub.RenewsAt = &d
	}
	if in.NotifyDays != nil {
		if *in.NotifyDays < 0 {
			return models.Subscription{}, fmt.Errorf("%w: notification lead time cannot be negative", ErrInvalidInput)
		}
		days := *in.NotifyDays
		sub.NotifyDays = &days
	}

	return sub, nil
}
