package models

const DefaultCurrency = "USD"

type User struct {
	ID         string
	Name       string
	WebhookURL string
	Currency   string
}
