package http

import (
	"github.com/NAJJJB/subscription-tracker/internal/calendar"
	"github.com/NAJJJB/subscription-tracker/internal/models"
	"github.com/NAJJJB/subscription-tracker/internal/services/subscriptions"
)

const moneyPlaces = 2

type subscriptionView struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Price             string  `json:"price"`
	RenewalFrequency  string  `json:"renewalFrequency"`
	RenewsAt          *string `json:"renewsAt"`
	NotifyDays        *int    `json:"notifyDays"`
	MonthlyEquivalent string  `json:"monthlyEquivalent"`
}

type userView struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	WebhookConfigured bool   `json:"webhookConfigured"`
}

type dashboardView struct {
	User          userView           `json:"user"`
	Subscriptions []subscriptionView `json:"subscriptions"`
	MonthlyTotal  string             `json:"monthlyTotal"`
	YearlyTotal   string             `json:"yearlyTotal"`
}

type registerRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

type webhookRequest struct {
	URL string `json:"url"`
}

type currencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

type loginRequest struct {
	Secret string `json:"secret" binding:"required"`
}

type broadcastRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func newSubscriptionView(s models.Subscription) subscriptionView {
	v := subscriptionView{
		ID:                s.ID,
		Name:              s.Name,
		Price:             s.Price.String(),
		RenewalFrequency:  string(s.Frequency.OrDefault()),
		NotifyDays:        s.NotifyDays,
		MonthlyEquivalent: calendar.MonthlyEquivalent(s.Price, s.Frequency).StringFixed(moneyPlaces),
	}
	if s.RenewsAt != nil {
		d := calendar.FormatDate(*s.RenewsAt)
		v.RenewsAt = &d
	}
	return v
}

func newDashboardView(d subscriptions.Dashboard) dashboardView {
	subs := make([]subscriptionView, 0, len(d.Subscriptions))
	for _, s := range d.Subscriptions {
		subs = append(subs, newSubscriptionView(s))
	}
	return dashboardView{
		User: userView{
			ID:                d.User.ID,
			Name:              d.User.Name,
			Currency:          d.User.Currency,
			WebhookConfigured: d.User.WebhookURL != "",
		},
		Subscriptions: subs,
		MonthlyTotal:  d.MonthlyTotal.StringFixed(moneyPlaces),
		YearlyTotal:   d.YearlyTotal.StringFixed(moneyPlaces),
	}
}
