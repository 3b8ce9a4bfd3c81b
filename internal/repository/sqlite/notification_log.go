package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/NAJJJB/subscription-tracker/internal/models"
)

// Notified reports whether a notification of kind was already recorded for
// the subscription on day (YYYY-MM-DD).
func (r *Repository) Notified(ctx context.Context, subscriptionID int64, kind models.NotificationKind, day string) (bool, error) {
	var last string
	err := r.DB.QueryRowContext(ctx,
		`SELECT notified_on FROM notification_log WHERE subscription_id = ? AND kind = ?`,
		subscriptionID, string(kind),
	).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return false, err
	}
	return last == day, nil
}

// MarkNotified records day as the last notification date for the subscription.
func (r *Repository) MarkNotified(ctx context.Context, subscriptionID int64, kind models.NotificationKind, day string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO notification_log (subscription_id, kind, notified_on) VALUES (?, ?, ?)
		ON CONFLICT (subscription_id, kind) DO UPDATE SET notified_on = excluded.notified_on`,
		subscriptionID, string(kind), day,
	)
	if err != nil {
		r.log.Error().Err(err).Int64("subscription_id", subscriptionID).Msg("failed to record notification")
		r.m.TechnicalErrors.WithLabelValues("db_upsert_error", "critical").Inc()
		return err
	}
	return nil
}
