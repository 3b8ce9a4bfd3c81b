// Package calendar converts renewal schedules into notification dates and
// normalises prices across renewal frequencies.
//
// Dates are civil dates: only the year, month and day of a time.Time are
// meaningful. They are carried as midnight UTC.
package calendar

import (
	"time"

	"github.com/NAJJJB/subscription-tracker/internal/models"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const monthsPerYear = 12

var (
	weeksPerMonth = decimal.RequireFromString("4.33")

	monthsPerQuarter  = decimal.NewFromInt(3)
	monthsPerHalfYear = decimal.NewFromInt(6)
	monthsInYear      = decimal.NewFromInt(monthsPerYear)
)

// MonthlyEquivalent normalises price to a per-month cost. Unknown
// frequencies are treated as monthly. The result is not rounded.
func MonthlyEquivalent(price decimal.Decimal, f models.Frequency) decimal.Decimal {
	switch f {
	case models.FrequencyWeekly:
		return price.Mul(weeksPerMonth)
	case models.FrequencyQuarterly:
		return price.Div(monthsPerQuarter)
	case models.FrequencySemiAnnually:
		return price.Div(monthsPerHalfYear)
	case models.FrequencyYearly:
		return price.Div(monthsInYear)
	default:
		return price
	}
}

func YearlyEquivalent(price decimal.Decimal, f models.Frequency) decimal.Decimal {
	return MonthlyEquivalent(price, f).Mul(monthsInYear)
}

// Totals sums the monthly and yearly cost of subs.
func Totals(subs []models.Subscription) (monthly, yearly decimal.Decimal) {
	monthly = decimal.Zero
	for _, s := range subs {
		monthly = monthly.Add(MonthlyEquivalent(s.Price, s.Frequency))
	}
	return monthly, monthly.Mul(monthsInYear)
}

// NotificationDate subtracts notifyDays whole days from renewsAt.
func NotificationDate(renewsAt time.Time, notifyDays int) time.Time {
	y, m, d := renewsAt.Date()
	return time.Date(y, m, d-notifyDays, 0, 0, 0, 0, time.UTC)
}

// IsDueToday compares calendar dates only.
func IsDueToday(notificationDate, today time.Time) bool {
	ny, nm, nd := notificationDate.Date()
	ty, tm, td := today.Date()
	return ny == ty && nm == tm && nd == td
}

// Today returns the civil date of now as observed in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
