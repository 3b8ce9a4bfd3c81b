package notifier_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NAJJJB/subscription-tracker/internal/metrics"
	"github.com/NAJJJB/subscription-tracker/internal/models"
	"github.com/NAJJJB/subscription-tracker/internal/notifier"
	"github.com/NAJJJB/subscription-tracker/internal/services/message"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListNotifiable(ctx context.Context) ([]models.OwnedSubscription, error) {
	args := m.Called(ctx)
	data, ok := args.Get(0).([]models.OwnedSubscription)
	if !ok {
		return nil, args.Error(1)
	}
	return data, args.Error(1)
}

// recordingDispatcher fails for endpoints listed in fail.
type recordingDispatcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string][]models.Message
}

func newDispatcher(failing ...string) *recordingDispatcher {
	d := &recordingDispatcher{fail: map[string]bool{}, calls: map[string][]models.Message{}}
	for _, f := range failing {
		d.fail[f] = true
	}
	return d
}

func (d *recordingDispatcher) Deliver(_ context.Context, endpoint string, msg models.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[endpoint] = append(d.calls[endpoint], msg)
	if d.fail[endpoint] {
		return errors.New("503 service unavailable")
	}
	return nil
}

func (d *recordingDispatcher) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		n += len(c)
	}
	return n
}

type memLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (l *memLedger) key(id int64, kind models.NotificationKind, day string) string {
	return string(kind) + "/" + day + "/" + strconv.FormatInt(id, 10)
}

func (l *memLedger) Notified(_ context.Context, id int64, kind models.NotificationKind, day string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[l.key(id, kind, day)], nil
}

func (l *memLedger) MarkNotified(_ context.Context, id int64, kind models.NotificationKind, day string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[l.key(id, kind, day)] = true
	return nil
}

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func owned(id int64, webhook string, renews *time.Time, notifyDays *int) models.OwnedSubscription {
	return models.OwnedSubscription{
		Subscription: models.Subscription{
			ID:         id,
			UserID:     "u" + strconv.FormatInt(id, 10),
			Name:       "sub",
			Price:      decimal.NewFromInt(10),
			Frequency:  models.FrequencyMonthly,
			RenewsAt:   renews,
			NotifyDays: notifyDays,
		},
		Owner: models.User{ID: "u" + strconv.FormatInt(id, 10), WebhookURL: webhook},
	}
}

func newNotifier(repo *mockRepo, d *recordingDispatcher, now time.Time) *notifier.Notifier {
	return notifier.New(
		notifier.NewScanner(repo),
		message.NewFormatter("https://subs.example"),
		d,
		notifier.Config{
			Schedule:   "@hourly",
			Workers:    3,
			RunTimeout: 5 * time.Second,
			Now:        func() time.Time { return now },
		},
		zerolog.Nop(),
		metrics.NewMetrics("notifier_test", nil, ""),
	)
}

func TestScan_ExcludesIncompleteRows(t *testing.T) {
	today := date(2024, time.June, 3)
	renews := date(2024, time.June, 10)

	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return([]models.OwnedSubscription{
		owned(1, "https://hooks.example/1", &renews, ptr(7)),
		owned(2, "", &renews, ptr(7)),
		owned(3, "https://hooks.example/3", nil, ptr(7)),
		owned(4, "https://hooks.example/4", &renews, nil),
	}, nil)

	jobs, err := notifier.NewScanner(repo).Scan(context.Background(), today)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(1), jobs[0].Subscription.ID)
	assert.Equal(t, models.KindRenewal, jobs[0].Kind)
	assert.Equal(t, "https://hooks.example/1", jobs[0].User.WebhookURL)
}

func TestScan_DueOnlyOnNotificationDay(t *testing.T) {
	renews := date(2024, time.June, 10)
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return([]models.OwnedSubscription{
		owned(1, "https://hooks.example/1", &renews, ptr(7)),
	}, nil)
	s := notifier.NewScanner(repo)

	due, err := s.Scan(context.Background(), date(2024, time.June, 3))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	notDue, err := s.Scan(context.Background(), date(2024, time.June, 4))
	require.NoError(t, err)
	assert.Empty(t, notDue)
}

func TestScan_RepeatableWithinDay(t *testing.T) {
	renews := date(2024, time.June, 10)
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return([]models.OwnedSubscription{
		owned(1, "https://hooks.example/1", &renews, ptr(7)),
		owned(2, "https://hooks.example/2", &renews, ptr(7)),
	}, nil)
	s := notifier.NewScanner(repo)
	today := date(2024, time.June, 3)

	first, err := s.Scan(context.Background(), today)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), today)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestScan_StorageFailure(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return(nil, errors.New("database is locked"))

	jobs, err := notifier.NewScanner(repo).Scan(context.Background(), date(2024, time.June, 3))

	require.Error(t, err)
	assert.Nil(t, jobs)
}

func TestRunDue_IsolatesFailures(t *testing.T) {
	renews := date(2024, time.June, 10)
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return([]models.OwnedSubscription{
		owned(1, "https://hooks.example/1", &renews, ptr(7)),
		owned(2, "https://hooks.example/broken", &renews, ptr(7)),
		owned(3, "https://hooks.example/3", &renews, ptr(7)),
		owned(4, "https://hooks.example/4", &renews, ptr(1)),
	}, nil)
	d := newDispatcher("https://hooks.example/broken")

	n := newNotifier(repo, d, time.Date(2024, time.June, 3, 15, 0, 0, 0, time.UTC))
	res, err := n.RunDue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, notifier.RunResult{Due: 3, Sent: 2, Failed: 1}, res)
	assert.Equal(t, 3, d.total())
	msg := d.calls["https://hooks.example/1"][0]
	assert.Equal(t, "🔔 Subscription Renewal Reminder", msg.Title)
}

func TestRunDue_UsesConfiguredTimeZone(t *testing.T) {
	renews := date(2024, time.June, 10)
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return([]models.OwnedSubscription{
		owned(1, "https://hooks.example/1", &renews, ptr(7)),
	}, nil)
	d := newDispatcher()
	kyiv, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	// 22:30 UTC on June 2 is already June 3 in Kyiv.
	now := time.Date(2024, time.June, 2, 22, 30, 0, 0, time.UTC)
	n := notifier.New(notifier.NewScanner(repo), message.NewFormatter(""), d,
		notifier.Config{Schedule: "@hourly", Location: kyiv, Now: func() time.Time { return now }},
		zerolog.Nop(), metrics.NewMetrics("notifier_test", nil, ""))

	res, err := n.RunDue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
}

func TestRunDue_StorageFailureSendsNothing(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return(nil, errors.New("disk I/O error"))
	d := newDispatcher()

	res, err := newNotifier(repo, d, date(2024, time.June, 3)).RunDue(context.Background())

	require.Error(t, err)
	assert.Equal(t, notifier.RunResult{}, res)
	assert.Zero(t, d.total())
}

func TestRunDue_LedgerSuppressesRepeats(t *testing.T) {
	renews := date(2024, time.June, 10)
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return([]models.OwnedSubscription{
		owned(1, "https://hooks.example/1", &renews, ptr(7)),
		owned(2, "https://hooks.example/broken", &renews, ptr(7)),
	}, nil)
	d := newDispatcher("https://hooks.example/broken")
	n := newNotifier(repo, d, date(2024, time.June, 3)).WithLedger(&memLedger{seen: map[string]bool{}})

	first, err := n.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.RunResult{Due: 2, Sent: 1, Failed: 1}, first)

	second, err := n.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notifier.RunResult{Due: 2, Failed: 1, Skipped: 1}, second)
	assert.Len(t, d.calls["https://hooks.example/1"], 1)
}

func TestRunDue_WithoutLedgerResends(t *testing.T) {
	renews := date(2024, time.June, 10)
	repo := &mockRepo{}
	repo.On("ListNotifiable", mock.Anything).Return([]models.OwnedSubscription{
		owned(1, "https://hooks.example/1", &renews, ptr(7)),
	}, nil)
	d := newDispatcher()
	n := newNotifier(repo, d, date(2024, time.June, 3))

	_, err := n.RunDue(context.Background())
	require.NoError(t, err)
	_, err = n.RunDue(context.Background())
	require.NoError(t, err)

	assert.Len(t, d.calls["https://hooks.example/1"], 2)
}

func TestSendOne_NewSubscription(t *testing.T) {
	d := newDispatcher()
	n := newNotifier(&mockRepo{}, d, date(2024, time.June, 3))
	job := models.NotificationJob{
		Subscription: owned(9, "", nil, nil).Subscription,
		User:         models.User{ID: "u9", WebhookURL: "https://hooks.example/9"},
		Kind:         models.KindNew,
	}

	require.NoError(t, n.SendOne(context.Background(), job))
	assert.Equal(t, "✅ New Subscription Added", d.calls["https://hooks.example/9"][0].Title)
}

func TestSendOne_NoWebhook(t *testing.T) {
	d := newDispatcher()
	n := newNotifier(&mockRepo{}, d, date(2024, time.June, 3))

	assert.Error(t, n.SendOne(context.Background(), models.NotificationJob{Kind: models.KindNew}))
	assert.Zero(t, d.total())
}

func TestStart_InvalidSchedule(t *testing.T) {
	n := notifier.New(notifier.NewScanner(&mockRepo{}), message.NewFormatter(""), newDispatcher(),
		notifier.Config{Schedule: "every now and then"},
		zerolog.Nop(), metrics.NewMetrics("notifier_test", nil, ""))

	assert.Error(t, n.Start(context.Background()))
	n.Stop()
}

func TestStartStop(t *testing.T) {
	n := newNotifier(&mockRepo{}, newDispatcher(), date(2024, time.June, 3))

	require.NoError(t, n.Start(context.Background()))
	n.Stop()
}
