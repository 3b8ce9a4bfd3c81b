package models

import "time"

type NotificationKind string

const (
	KindNew     NotificationKind = "new"
	KindRenewal NotificationKind = "renewal"
	KindUrgent  NotificationKind = "urgent"
)

// NotificationJob lives only for the duration of one dispatch attempt.
type NotificationJob struct {
	Subscription Subscription
	User         User
	Kind         NotificationKind
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is a formatted notification, independent of the wire format.
type Message struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
}
