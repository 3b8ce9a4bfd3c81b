package models

// SubscriptionInput is the body accepted when adding or editing a subscription.
type SubscriptionInput struct {
	Name       string `json:"name" binding:"required"`
	Price      string `json:"price" binding:"required"`
	Frequency  string `json:"renewalFrequency" binding:"omitempty,oneof=weekly monthly quarterly semi-annually yearly"`
	RenewsAt   string `json:"renewsAt" binding:"omitempty,datetime=2006-01-02"`
	NotifyDays *int   `json:"notifyDays" binding:"omitempty,min=0"`
}
