// Package webhook delivers formatted messages to user webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/NAJJJB/subscription-tracker/internal/models"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
	detailLimit     = 256
)

// StatusError reports a webhook response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("webhook responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook responded with status %d: %s", e.StatusCode, e.Detail)
}

type payload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// Client posts one message per call. It never retries.
type Client struct {
	http     *http.Client
	username string
	log      zerolog.Logger
}

// NewClient wraps httpClient, whose Timeout bounds every delivery attempt.
func NewClient(httpClient *http.Client, username string, logger zerolog.Logger) *Client {
	return &Client{
		http:     httpClient,
		username: username,
		log:      logger.With().Str("component", "WebhookClient").Logger(),
	}
}

// Deliver sends msg to endpoint. A nil error means the endpoint answered 2xx.
func (c *Client) Deliver(ctx context.Context, endpoint string, msg models.Message) error {
	body, err := json.Marshal(c.payload(msg))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Warn().Err(err).Msg("invalid webhook endpoint")
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("title", msg.Title).Msg("webhook delivery failed")
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() {
		if cErr := resp.Body.Close(); cErr != nil {
			c.log.Error().Err(cErr).Msg("failed to close webhook response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, detailLimit))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Detail: string(bytes.TrimSpace(detail))}
		c.log.Warn().
			Int("status_code", resp.StatusCode).
			Str("title", msg.Title).
			Msg("webhook rejected message")
		return statusErr
	}

	c.log.Debug().Int("status_code", resp.StatusCode).Str("title", msg.Title).Msg("webhook delivered")
	return nil
}

func (c *Client) payload(msg models.Message) payload {
	fields := make([]embedField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return payload{
		Username: c.username,
		Embeds: []embed{{
			Title:       msg.Title,
			Description: msg.Description,
			Color:       msg.Color,
			Fields:      fields,
			Footer:      embedFooter{Text: msg.Footer},
			Timestamp:   ts.UTC().Format(timestampLayout),
		}},
	}
}
