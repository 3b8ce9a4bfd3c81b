package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyWeekly       Frequency = "weekly"
	FrequencyMonthly      Frequency = "monthly"
	FrequencyQuarterly    Frequency = "quarterly"
	FrequencySemiAnnually Frequency = "semi-annually"
	FrequencyYearly       Frequency = "yearly"
)

// Valid reports whether f is one of the known renewal frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnually, FrequencyYearly:
		return true
	}
	return false
}

// OrDefault returns monthly for an empty or unknown frequency.
func (f Frequency) OrDefault() Frequency {
	if !f.Valid() {
		return FrequencyMonthly
	}
	return f
}

type Subscription struct {
	ID         int64
	UserID     string
	Name       string
	Price      decimal.Decimal
	Frequency  Frequency
	RenewsAt   *time.Time
	NotifyDays *int
}

// OwnedSubscription is a subscription row joined with its owner.
type OwnedSubscription struct {
	Subscription Subscription
	Owner        User
}
