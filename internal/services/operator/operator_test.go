package operator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NAJJJB/subscription-tracker/internal/cache"
	"github.com/NAJJJB/subscription-tracker/internal/metrics"
	"github.com/NAJJJB/subscription-tracker/internal/services/operator"
)

const (
	operatorID = "operator-1"
	secret     = "s3cret"
)

func newService(store operator.TokenStore) *operator.Service {
	return operator.NewService(
		operator.Config{UserID: operatorID, Secret: secret, TokenTTL: time.Hour},
		store,
		zerolog.Nop(),
		metrics.NewMetrics("operator_test", nil, ""),
	)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	return m.Called(ctx, token, userID, ttl).Error(0)
}

func (m *mockStore) Lookup(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func TestLogin_IssuesToken(t *testing.T) {
	ctx := context.Background()
	svc := newService(cache.NewMemoryStore())

	before := time.Now()
	tok, err := svc.Login(ctx, operatorID, secret)

	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.WithinDuration(t, before.Add(time.Hour), tok.ExpiresAt, 5*time.Second)
	assert.NoError(t, svc.Authorize(ctx, operatorID, tok.Value))
}

func TestLogin_Rejections(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	svc := newService(store)

	_, err := svc.Login(ctx, "someone-else", secret)
	assert.ErrorIs(t, err, operator.ErrIdentityMismatch)

	_, err = svc.Login(ctx, operatorID, "wrong")
	assert.ErrorIs(t, err, operator.ErrSecretMismatch)

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_NotConfigured(t *testing.T) {
	svc := operator.NewService(operator.Config{}, cache.NewMemoryStore(), zerolog.Nop(),
		metrics.NewMetrics("operator_test", nil, ""))

	_, err := svc.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, operator.ErrNotConfigured)
}

func TestLogin_StoreFailure(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything, operatorID, time.Hour).Return(errors.New("redis down"))

	_, err := newService(store).Login(context.Background(), operatorID, secret)

	require.Error(t, err)
	assert.NotErrorIs(t, err, operator.ErrSecretMismatch)
}

func TestAuthorize_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := newService(cache.NewMemoryStore())
	tok, err := svc.Login(ctx, operatorID, secret)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Authorize(ctx, operatorID, ""), operator.ErrTokenInvalid)
	assert.ErrorIs(t, svc.Authorize(ctx, operatorID, "forged"), operator.ErrTokenInvalid)
	assert.ErrorIs(t, svc.Authorize(ctx, "someone-else", tok.Value), operator.ErrIdentityMismatch)
}

func TestAuthorize_ForeignToken(t *testing.T) {
	store := &mockStore{}
	store.On("Lookup", mock.Anything, "tok").Return("another-operator", nil)

	err := newService(store).Authorize(context.Background(), operatorID, "tok")

	assert.ErrorIs(t, err, operator.ErrTokenInvalid)
}

func TestAuthorize_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := cache.NewMemoryStoreWithClock(func() time.Time { return now })
	svc := newService(store)

	tok, err := svc.Login(ctx, operatorID, secret)
	require.NoError(t, err)

	now = now.Add(time.Hour + time.Second)
	assert.ErrorIs(t, svc.Authorize(ctx, operatorID, tok.Value), operator.ErrTokenInvalid)
}

func TestLogout_RevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newService(cache.NewMemoryStore())
	tok, err := svc.Login(ctx, operatorID, secret)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, operatorID, tok.Value))

	assert.ErrorIs(t, svc.Authorize(ctx, operatorID, tok.Value), operator.ErrTokenInvalid)
	assert.ErrorIs(t, svc.Logout(ctx, operatorID, tok.Value), operator.ErrTokenInvalid)
}

func TestLogin_ThrottlesSecretAttempts(t *testing.T) {
	ctx := context.Background()
	svc := operator.NewService(
		operator.Config{
			UserID:        operatorID,
			Secret:        secret,
			LoginInterval: time.Hour,
			LoginBurst:    2,
		},
		cache.NewMemoryStore(),
		zerolog.Nop(),
		metrics.NewMetrics("operator_test", nil, ""),
	)

	_, err := svc.Login(ctx, operatorID, "guess-1")
	assert.ErrorIs(t, err, operator.ErrSecretMismatch)
	_, err = svc.Login(ctx, operatorID, "guess-2")
	assert.ErrorIs(t, err, operator.ErrSecretMismatch)

	_, err = svc.Login(ctx, operatorID, secret)
	assert.ErrorIs(t, err, operator.ErrTooManyAttempts)

	_, err = svc.Login(ctx, "someone-else", secret)
	assert.ErrorIs(t, err, operator.ErrIdentityMismatch)
}
