package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/NAJJJB/subscription-tracker/internal/calendar"
	"github.com/NAJJJB/subscription-tracker/internal/models"
)

type notifiableLister interface {
	ListNotifiable(ctx context.Context) ([]models.OwnedSubscription, error)
}

// Scanner selects the subscriptions whose notification day is today.
// It keeps no state between scans.
type Scanner struct {
	repo notifiableLister
}

func NewScanner(repo notifiableLister) *Scanner {
	return &Scanner{repo: repo}
}

// Scan returns one renewal job per due subscription. A storage failure fails
// the whole scan.
func (s *Scanner) Scan(ctx context.Context, today time.Time) ([]models.NotificationJob, error) {
	rows, err := s.repo.ListNotifiable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifiable subscriptions: %w", err)
	}

	var jobs []models.NotificationJob
	for _, row := range rows {
		sub := row.Subscription
		if sub.RenewsAt == nil || sub.NotifyDays == nil || row.Owner.WebhookURL == "" {
			continue
		}
		if !calendar.IsDueToday(calendar.NotificationDate(*sub.RenewsAt, *sub.NotifyDays), today) {
			continue
		}
		jobs = append(jobs, models.NotificationJob{
			Subscription: sub,
			User:         row.Owner,
			Kind:         models.KindRenewal,
		})
	}
	return jobs, nil
}
