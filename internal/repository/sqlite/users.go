package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NAJJJB/subscription-tracker/internal/models"
)

// UpsertUser registers a user on first login. A repeat registration keeps
// the originally captured display name.
func (r *Repository) UpsertUser(ctx context.Context, u models.User) error {
	start := time.Now()
	currency := u.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	_, err := r.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, name, currency) VALUES (?, ?, ?)`,
		u.ID, u.Name, currency,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to insert user")
		r.m.TechnicalErrors.WithLabelValues("db_insert_error", "critical").Inc()
		return err
	}

	r.log.Debug().Str("user_id", u.ID).Dur("duration", time.Since(start)).Msg("user registered")
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (models.User, error) {
	var (
		u       models.User
		webhook sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, webhook_url, currency FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &webhook, &u.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrUserNotFound)
	}
	if err != nil {
		r.log.Error().Err(err).Str("user_id", id).Msg("failed to query user")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return models.User{}, err
	}
	u.WebhookURL = webhook.String

	return u, nil
}

// GetWebhook returns the user's delivery endpoint, or "" when none is set.
func (r *Repository) GetWebhook(ctx context.Context, userID string) (string, error) {
	u, err := r.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.WebhookURL, nil
}

// SetWebhook stores the delivery endpoint. An empty url clears it.
func (r *Repository) SetWebhook(ctx context.Context, userID, url string) error {
	var value sql.NullString
	if url != "" {
		value = sql.NullString{String: url, Valid: true}
	}
	return r.updateUser(ctx, userID, `UPDATE users SET webhook_url = ? WHERE id = ?`, value)
}

func (r *Repository) SetCurrency(ctx context.Context, userID, currency string) error {
	return r.updateUser(ctx, userID, `UPDATE users SET currency = ? WHERE id = ?`, currency)
}

func (r *Repository) updateUser(ctx context.Context, userID, query string, value any) error {
	res, err := r.DB.ExecContext(ctx, query, value, userID)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("failed to update user")
		r.m.TechnicalErrors.WithLabelValues("db_update_error", "critical").Inc()
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, models.ErrUserNotFound)
	}

	r.log.Info().Str("user_id", userID).Msg("user updated")
	return nil
}

// ListWebhooks returns every user with a delivery endpoint configured.
func (r *Repository) ListWebhooks(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, webhook_url, currency
		FROM users
		WHERE webhook_url IS NOT NULL AND webhook_url != ''
		ORDER BY id`,
	)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to query webhooks")
		r.m.TechnicalErrors.WithLabelValues("db_query_error", "critical").Inc()
		return nil, err
	}
	defer r.closeRows(rows)

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.WebhookURL, &u.Currency); err != nil {
			r.m.TechnicalErrors.WithLabelValues("db_scan_error", "critical").Inc()
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		r.m.TechnicalErrors.WithLabelValues("db_rows_error", "critical").Inc()
		return nil, err
	}

	r.log.Debug().Int("count", len(users)).Msg("listed webhooks")
	return users, nil
}
