// Package message builds the notification messages sent to user webhooks.
package message

import (
	"fmt"
	"time"

	"github.com/NAJJJB/subscription-tracker/internal/models"
)

const (
	ColorSuccess = 0x10B981
	ColorInfo    = 0x5865F2
	ColorAlert   = 0xEF4444

	renewalFooter = "Subscription Tracker"
	urgentFooter  = "Urgent notice from Subscription Tracker"

	displayDateLayout = "Jan 2, 2006"
)

const (
	fieldPrice        = "💰 Price"
	fieldRenewalDate  = "📅 Renewal Date"
	fieldNotification = "⏰ Notification"
)

var periods = map[models.Frequency]string{
	models.FrequencyWeekly:       "week",
	models.FrequencyMonthly:      "month",
	models.FrequencyQuarterly:    "quarter",
	models.FrequencySemiAnnually: "6 months",
	models.FrequencyYearly:       "year",
}

// Formatter turns notification jobs into messages. It performs no I/O.
type Formatter struct {
	publicURL string
}

// NewFormatter returns a Formatter whose new-subscription footer points at publicURL.
func NewFormatter(publicURL string) *Formatter {
	return &Formatter{publicURL: publicURL}
}

// Format renders a new-subscription or renewal message for job, stamped with now.
func (f *Formatter) Format(job models.NotificationJob, now time.Time) models.Message {
	sub := job.Subscription
	msg := models.Message{
		Fields:    subscriptionFields(sub, job.User.Currency),
		Timestamp: now.UTC(),
	}

	switch job.Kind {
	case models.KindNew:
		msg.Title = "✅ New Subscription Added"
		msg.Description = fmt.Sprintf("You've successfully added **%s** to your subscription tracker!", sub.Name)
		msg.Color = ColorSuccess
		msg.Footer = "This was an automatic notification from " + f.publicURL
	default:
		msg.Title = "🔔 Subscription Renewal Reminder"
		msg.Description = fmt.Sprintf("Your **%s** subscription is renewing soon!", sub.Name)
		msg.Color = ColorInfo
		msg.Footer = renewalFooter
	}

	return msg
}

// Urgent renders an operator broadcast. Title and text are used verbatim.
func (f *Formatter) Urgent(title, text string, now time.Time) models.Message {
	return models.Message{
		Title:       title,
		Description: text,
		Color:       ColorAlert,
		Footer:      urgentFooter,
		Timestamp:   now.UTC(),
	}
}

func subscriptionFields(sub models.Subscription, currency string) []models.Field {
	return []models.Field{
		{Name: fieldPrice, Value: Price(sub, currency), Inline: true},
		{Name: fieldRenewalDate, Value: renewalDate(sub.RenewsAt), Inline: true},
		{Name: fieldNotification, Value: LeadTime(sub.NotifyDays), Inline: true},
	}
}

// Price formats the subscription cost as "<price> <currency>/<period>".
func Price(sub models.Subscription, currency string) string {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return fmt.Sprintf("%s %s/%s", sub.Price.String(), currency, periods[sub.Frequency.OrDefault()])
}

// LeadTime renders the notification lead time, e.g. "1 day before".
func LeadTime(days *int) string {
	if days == nil {
		return "Not configured"
	}
	if *days == 1 {
		return "1 day before"
	}
	return fmt.Sprintf("%d days before", *days)
}

func renewalDate(d *time.Time) string {
	if d == nil {
		return "Not set"
	}
	return d.Format(displayDateLayout)
}
