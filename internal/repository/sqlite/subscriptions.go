package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/NAJJJB/subscription-tracker/internal/calendar"
	"github.com/NAJJJB/subscription-tracker/internal/metrics"
	"github.com/NAJJJB/subscription-tracker/internal/models"
)

// Repository handles users, subscriptions and the notification log with
// structured logging and metrics.
type Repository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

// NewRepository constructs a repository with logger context and metrics collector.
func NewRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *Repository {
	logger = logger.With().Str("component", "Repository").Logger()
	return &Repository{DB: db, log: logger, m: m}
}

const subscriptionColumns = `s.id, s.user_id, s.name, s.price, s.renewal_frequency, s.renews_at, s.notify_days`

// CreateSubscription inserts a new subscription and returns its id.
func (r *Repository) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	start := time.Now()

	exists, err := r.subscriptionExists(ctx, sub.UserID, sub.Name)
	if err != nil {
		return 0, err
	}
	if exists {
		r.log.Warn().Str("user_id", sub.UserID).Str("name", sub.Name).
			Msg("subscription already exists, abort create")
		r.m.BusinessErrors.WithLabelValues("subscription_exists", "warning").Inc()
		return 0, models.ErrSubscriptionExists
	}

	renewsAt, notifyDays := nullableSchedule(sub)
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, name, price, renewal_frequency, renews_at, notify_days)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.Name, sub.Price.String(), string(sub.Frequency.OrDefault()), renewsAt, notifyDays,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", sub.UserID).Msg("failed to insert subscription")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	r.log.Info().
		Str("user_id", sub.UserID).
		Str("name", sub.Name).
		Int64("subscription_id", id).
		Dur("duration", time.Since(start)).
		Msg("subscription created")
	return id, nil
}

// UpdateSubscription replaces every field of the subscription named oldName.
func (r *Repository) UpdateSubscription(ctx context.Context, userID, oldName string, sub models.Subscription) error {
	if sub.Name != oldName {
		exists, err := r.subscriptionExists(ctx, userID, sub.Name)
		if err != nil {
			return err
		}
		if exists {
			r.m.BusinessErrors.WithLabelValues("subscription_exists", "warning").Inc()
			return models.ErrSubscriptionExists
		}
	}

	renewsAt, notifyDays := nullableSchedule(sub)
	res, err := r.DB.ExecContext(ctx, `
		UPDATE subscriptions
		SET name = ?, price = ?, renewal_frequency = ?, renews_at = ?, notify_days = ?
		WHERE user_id = ? AND name = ?`,
		sub.Name, sub.Price.String(), string(sub.Frequency.OrDefault()), renewsAt, notifyDays,
		userID, oldName,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Str("name", oldName).Msg("failed to update subscription")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return err
	}
	if err := expectAffected(res, oldName); err != nil {
		return err
	}

	r.log.Info().Str("user_id", userID).Str("old_name", oldName).Str("name", sub.Name).
		Msg("subscription updated")
	return nil
}

func (r *Repository) DeleteSubscription(ctx context.Context, userID, name string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ? AND name = ?`, userID, name,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Str("name", name).Msg("failed to delete subscription")
		r.m.TechnicalErrors.WithLabelValues("db_delete_error", "critical").Inc()
		return err
	}
	if err := expectAffected(res, name); err != nil {
		return err
	}

	r.log.Info().Str("user_id", userID).Str("name", name).Msg("subscription removed")
	return nil
}

func (r *Repository) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s
		WHERE s.user_id = ?
		ORDER BY s.name`, userID,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("failed to query subscriptions")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer r.closeRows(rows)

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			r.m.TechnicalErrors.WithLabelValues("db_scan_error", "critical").Inc()
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		r.m.TechnicalErrors.WithLabelValues("db_rows_error", "critical").Inc()
		return nil, err
	}

	return subs, nil
}

// ListNotifiable returns every subscription joined with its owner where the
// owner has a webhook and the subscription has both a renewal date and a
// lead time. The whole table is read on every call.
func (r *Repository) ListNotifiable(ctx context.Context) ([]models.OwnedSubscription, error) {
	start := time.Now()
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`, u.name, u.webhook_url, u.currency
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE u.webhook_url IS NOT NULL AND u.webhook_url != ''
		  AND s.renews_at IS NOT NULL AND s.renews_at != ''
		  AND s.notify_days IS NOT NULL
		ORDER BY s.id`,
	)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to query notifiable subscriptions")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer r.closeRows(rows)

	var out []models.OwnedSubscription
	for rows.Next() {
		var (
			row     models.OwnedSubscription
			webhook sql.NullString
		)
		sub, err := scanSubscription(rows, &row.Owner.Name, &webhook, &row.Owner.Currency)
		if err != nil {
			r.log.Error().Err(err).Msg("failed to scan notifiable row")
			r.m.TechnicalErrors.WithLabelValues("db_scan_error", "critical").Inc()
			return nil, err
		}
		row.Subscription = sub
		row.Owner.ID = sub.UserID
		row.Owner.WebhookURL = webhook.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		r.log.Error().Err(err).Msg("row iteration error")
		r.m.TechnicalErrors.WithLabelValues("db_rows_error", "critical").Inc()
		return nil, err
	}

	r.log.Debug().Int("count", len(out)).Dur("duration", time.Since(start)).
		Msg("retrieved notifiable subscriptions")
	return out, nil
}

func (r *Repository) subscriptionExists(ctx context.Context, userID, name string) (bool, error) {
	var cnt int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = ? AND name = ?`, userID, name,
	).Scan(&cnt)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to query subscription count")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return false, err
	}
	return cnt > 0, nil
}

func (r *Repository) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.log.Error().Err(err).Msg("failed to close rows")
		r.m.TechnicalErrors.WithLabelValues("db_rows_close_error", "critical").Inc()
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSubscription reads subscriptionColumns followed by any extra columns.
func scanSubscription(row scanner, extra ...any) (models.Subscription, error) {
	var (
		sub        models.Subscription
		price      string
		frequency  string
		renewsAt   sql.NullString
		notifyDays sql.NullInt64
	)
	dest := append([]any{&sub.ID, &sub.UserID, &sub.Name, &price, &frequency, &renewsAt, &notifyDays}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.Subscription{}, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("subscription %d price %q: %w", sub.ID, price, err)
	}
	sub.Price = p
	sub.Frequency = models.Frequency(frequency).OrDefault()

	if renewsAt.Valid && renewsAt.String != "" {
		d, err := calendar.ParseDate(renewsAt.String)
		if err != nil {
			return models.Subscription{}, fmt.Errorf("subscription %d renews_at %q: %w", sub.ID, renewsAt.String, err)
		}
		sub.RenewsAt = &d
	}
	if notifyDays.Valid {
		n := int(notifyDays.Int64)
		sub.NotifyDays = &n
	}

	return sub, nil
}

func nullableSchedule(sub models.Subscription) (sql.NullString, sql.NullInt64) {
	var (
		renewsAt   sql.NullString
		notifyDays sql.NullInt64
	)
	if sub.RenewsAt != nil {
		renewsAt = sql.NullString{String: calendar.FormatDate(*sub.RenewsAt), Valid: true}
	}
	if sub.NotifyDays != nil {
		notifyDays = sql.NullInt64{Int64: int64(*sub.NotifyDays), Valid: true}
	}
	return renewsAt, notifyDays
}

func expectAffected(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("subscription %q: %w", name, models.ErrSubscriptionNotFound)
	}
	return nil
}
