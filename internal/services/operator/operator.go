// Package operator issues and checks the time-boxed capability tokens that
// guard the broadcast operation.
package operator

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/NAJJJB/subscription-tracker/internal/cache"
	"github.com/NAJJJB/subscription-tracker/internal/metrics"
)

const defaultTTL = time.Hour

var (
	ErrNotConfigured    = errors.New("operator access is not configured")
	ErrIdentityMismatch = errors.New("caller is not the operator")
	ErrSecretMismatch   = errors.New("operator secret mismatch")
	ErrTokenInvalid     = errors.New("operator token is missing, expired or invalid")
	ErrTooManyAttempts  = errors.New("too many operator login attempts")
)

// TokenStore holds issued tokens until they expire or are deleted.
type TokenStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

type Config struct {
	UserID   string
	Secret   string
	TokenTTL time.Duration
	// LoginInterval refills one secret attempt per interval, up to LoginBurst.
	// Zero disables throttling.
	LoginInterval time.Duration
	LoginBurst    int
}

type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	cfg      Config
	store    TokenStore
	attempts *rate.Limiter
	logger   zerolog.Logger
	m        *metrics.Metrics
	now      func() time.Time
}

func NewService(cfg Config, store TokenStore, logger zerolog.Logger, m *metrics.Metrics) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTTL
	}
	s := &Service{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "OperatorService").Logger(),
		m:      m,
		now:    time.Now,
	}
	if cfg.LoginInterval > 0 {
		burst := cfg.LoginBurst
		if burst < 1 {
			burst = 1
		}
		s.attempts = rate.NewLimiter(rate.Every(cfg.LoginInterval), burst)
	}
	return s
}

// Login exchanges the pre-shared secret for a capability token. The caller
// must already be identified as the operator account.
func (s *Service) Login(ctx context.Context, userID, secret string) (Token, error) {
	if err := s.checkIdentity(userID); err != nil {
		s.record("login", err)
		return Token{}, err
	}
	if s.attempts != nil && !s.attempts.Allow() {
		s.logger.Warn().Str("user_id", userID).Msg("operator login throttled")
		s.record("login", ErrTooManyAttempts)
		return Token{}, ErrTooManyAttempts
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.Secret)) != 1 {
		s.logger.Warn().Str("user_id", userID).Msg("operator secret mismatch")
		s.record("login", ErrSecretMismatch)
		return Token{}, ErrSecretMismatch
	}

	token := Token{
		Value:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.cfg.TokenTTL).UTC(),
	}
	if err := s.store.Save(ctx, token.Value, userID, s.cfg.TokenTTL); err != nil {
		s.m.TechnicalErrors.WithLabelValues("token_store_save", "critical").Inc()
		return Token{}, fmt.Errorf("store operator token: %w", err)
	}

	s.record("login", nil)
	s.logger.Info().Str("user_id", userID).Time("expires_at", token.ExpiresAt).Msg("operator token issued")
	return token, nil
}

// Authorize succeeds only for a live token issued to userID, who must still
// be the operator.
func (s *Service) Authorize(ctx context.Context, userID, token string) error {
	if err := s.checkIdentity(userID); err != nil {
		s.record("authorize", err)
		return err
	}
	if token == "" {
		s.record("authorize", ErrTokenInvalid)
		return ErrTokenInvalid
	}

	owner, err := s.store.Lookup(ctx, token)
	if errors.Is(err, cache.ErrTokenNotFound) {
		s.record("authorize", ErrTokenInvalid)
		return ErrTokenInvalid
	}
	if err != nil {
		s.m.TechnicalErrors.WithLabelValues("token_store_lookup", "critical").Inc()
		return fmt.Errorf("lookup operator token: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(owner), []byte(userID)) != 1 {
		s.record("authorize", ErrTokenInvalid)
		return ErrTokenInvalid
	}

	s.record("authorize", nil)
	return nil
}

// Logout revokes a token the caller currently holds.
func (s *Service) Logout(ctx context.Context, userID, token string) error {
	if err := s.Authorize(ctx, userID, token); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("revoke operator token: %w", err)
	}
	s.record("logout", nil)
	s.logger.Info().Str("user_id", userID).Msg("operator token revoked")
	return nil
}

func (s *Service) checkIdentity(userID string) error {
	if s.cfg.UserID == "" || s.cfg.Secret == "" {
		return ErrNotConfigured
	}
	if userID != s.cfg.UserID {
		s.logger.Warn().Str("user_id", userID).Msg("non-operator attempted privileged access")
		return ErrIdentityMismatch
	}
	return nil
}

func (s *Service) record(action string, err error) {
	result := "ok"
	if err != nil {
		result = "denied"
	}
	s.m.OperatorAuth.WithLabelValues(action, result).Inc()
}
