package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"quickassist/infras/geo"
	"quickassist/infras/otel/mocks"
	"quickassist/infras/ws"
	bookingMocks "quickassist/internal/domains/booking/mocks"
	"quickassist/internal/domains/booking/model"
	"quickassist/internal/domains/booking/model/dto"
	"quickassist/internal/domains/realtime"
	sessionModel "quickassist/internal/domains/session/model"
	sessionDto "quickassist/internal/domains/session/model/dto"
	"quickassist/permissions"
	"quickassist/shared/constant"
	"quickassist/shared/failure"
)

type fakeChannel struct {
	mu       sync.Mutex
	incoming chan json.RawMessage
	sent     []any
	err      error

	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{incoming: make(chan json.RawMessage, 32)}
}

func (f *fakeChannel) Messages() <-chan json.RawMessage { return f.incoming }

func (f *fakeChannel) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeChannel) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeChannel) Close() {
	f.closeOnce.Do(func() { close(f.incoming) })
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChannel) push(t *testing.T, raw string) {
	t.Helper()
	f.incoming <- json.RawMessage(raw)
}

type fakeDialer struct {
	location *fakeChannel
	chat     *fakeChannel
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{location: newFakeChannel(), chat: newFakeChannel()}
}

func (f *fakeDialer) Dial(_ context.Context, path string) ws.Channel {
	if strings.HasPrefix(path, "/location/") {
		return f.location
	}
	return f.chat
}

type fakeWatcher struct {
	samples chan geo.Sample
	err     error
}

func (f *fakeWatcher) Watch(ctx context.Context) (<-chan geo.Sample, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make(chan geo.Sample)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case sample, ok := <-f.samples:
				if !ok {
					return
				}
				select {
				case <-ctx.Done():
					return
				case out <- sample:
				}
			}
		}
	}()

	return out, nil
}

type stubSession struct {
	role string
}

func (s stubSession) Init(_ context.Context)                                   {}
func (s stubSession) Login(_ context.Context, _ sessionDto.LoginRequest) error { return nil }
func (s stubSession) Logout()                                                  {}
func (s stubSession) State() sessionModel.State                                { return sessionModel.StateAuthenticated }
func (s stubSession) Identity() (sessionModel.Identity, bool)                  { return sessionModel.Identity{}, true }
func (s stubSession) Role() string                                             { return s.role }

type trackerFixture struct {
	repo    *bookingMocks.MockBooking
	dialer  *fakeDialer
	watcher *fakeWatcher
	svc     Booking
}

func newFixture(t *testing.T, role string) *trackerFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &trackerFixture{
		repo:    bookingMocks.NewMockBooking(ctrl),
		dialer:  newFakeDialer(),
		watcher: &fakeWatcher{samples: make(chan geo.Sample, 8)},
	}

	f.svc = New(
		f.repo,
		realtime.New(f.dialer, mocks.NewOtel()),
		stubSession{role: role},
		f.watcher,
		permissions.Get(),
		mocks.NewOtel(),
	)

	return f
}

func (f *trackerFixture) open(t *testing.T, booking model.Booking) Tracker {
	t.Helper()

	f.repo.EXPECT().Get(gomock.Any(), booking.ID).Return(booking, nil)

	tracker, err := f.svc.Open(context.Background(), booking.ID)
	assert.NoError(t, err)
	t.Cleanup(tracker.Close)

	return tracker
}

func pendingBooking(id string) model.Booking {
	return model.Booking{
		ID:              id,
		Status:          model.StatusPending,
		OriginLatitude:  -6.7924,
		OriginLongitude: 39.2083,
		Customer:        &model.Party{ID: 1, Username: "amina", UserType: constant.RoleCustomer},
		Provider:        &model.Party{ID: 2, Username: "juma", UserType: constant.RoleProvider},
	}
}

func withStatus(b model.Booking, status model.Status) model.Booking {
	b.Status = status
	return b
}

func TestOpenNotFound(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	f.repo.EXPECT().
		Get(gomock.Any(), "missing").
		Return(model.Booking{}, failure.NotFound(model.EntityName))

	tracker, err := f.svc.Open(context.Background(), "missing")
	assert.Nil(t, tracker)
	assert.Equal(t, failure.ClassNotFound, failure.GetClass(err))
}

func TestOpenSeedsPositionFromSnapshot(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	lat, lng := -6.80, 39.25
	booking := withStatus(pendingBooking("b-1"), model.StatusInProgress)
	booking.Provider.Profile = &model.ProviderProfile{
		LastKnownLatitude:  &lat,
		LastKnownLongitude: &lng,
	}

	tracker := f.open(t, booking)

	position, ok := tracker.Position()
	assert.True(t, ok)
	assert.Equal(t, model.LivePosition{Latitude: lat, Longitude: lng}, position)

	origin := tracker.Origin()
	assert.Equal(t, model.LivePosition{Latitude: -6.7924, Longitude: 39.2083}, origin)
}

func TestAvailableActionsFollowStatus(t *testing.T) {
	testCases := []struct {
		name     string
		role     string
		booking  model.Booking
		expected []model.Action
	}{
		{
			name:     "provider sees accept and decline while pending",
			role:     constant.RoleProvider,
			booking:  pendingBooking("b-1"),
			expected: []model.Action{model.ActionAccept, model.ActionDecline},
		},
		{
			name:     "customer sees nothing while pending",
			role:     constant.RoleCustomer,
			booking:  pendingBooking("b-2"),
			expected: []model.Action{},
		},
		{
			name:     "provider sees start_job once accepted",
			role:     constant.RoleProvider,
			booking:  withStatus(pendingBooking("b-3"), model.StatusAccepted),
			expected: []model.Action{model.ActionStartJob},
		},
		{
			name:     "customer sees pay on unpaid completed booking",
			role:     constant.RoleCustomer,
			booking:  withStatus(pendingBooking("b-4"), model.StatusCompleted),
			expected: []model.Action{model.ActionPay},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.role)
			tracker := f.open(t, tc.booking)

			assert.ElementsMatch(t, tc.expected, tracker.AvailableActions())
		})
	}
}

func TestDoStartJobSwapsSnapshot(t *testing.T) {
	f := newFixture(t, constant.RoleProvider)

	accepted := withStatus(pendingBooking("b-1"), model.StatusAccepted)
	tracker := f.open(t, accepted)

	assert.Equal(t, []model.Action{model.ActionStartJob}, tracker.AvailableActions())

	f.repo.EXPECT().
		StartJob(gomock.Any(), "b-1").
		Return(withStatus(accepted, model.StatusInProgress), nil)

	err := tracker.Do(context.Background(), model.ActionStartJob)
	assert.NoError(t, err)

	assert.Equal(t, model.StatusInProgress, tracker.Snapshot().Status)
	assert.Equal(t, []model.Action{model.ActionCompleteJob}, tracker.AvailableActions())
}

func TestDoRejectsUnavailableAction(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)
	tracker := f.open(t, pendingBooking("b-1"))

	err := tracker.Do(context.Background(), model.ActionAccept)
	assert.Equal(t, failure.ClassValidation, failure.GetClass(err))
}

func TestDoKeepsSnapshotOnServerError(t *testing.T) {
	f := newFixture(t, constant.RoleProvider)
	tracker := f.open(t, pendingBooking("b-1"))

	f.repo.EXPECT().
		Accept(gomock.Any(), "b-1").
		Return(model.Booking{}, failure.Server(http.StatusConflict, "booking is no longer pending"))

	err := tracker.Do(context.Background(), model.ActionAccept)
	assert.Equal(t, failure.ClassServer, failure.GetClass(err))
	assert.Equal(t, model.StatusPending, tracker.Snapshot().Status)
	assert.Contains(t, tracker.AvailableActions(), model.ActionAccept)
}

func TestRateRequiresScoreBeforeNetwork(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	paid := withStatus(pendingBooking("b-1"), model.StatusCompleted)
	paid.IsPaid = true
	tracker := f.open(t, paid)

	// Zero and out-of-range scores never reach the repository.
	for _, score := range []int{0, 6} {
		err := tracker.Rate(context.Background(), dto.RateRequest{Rating: score})
		assert.Equal(t, failure.ClassValidation, failure.GetClass(err))
	}
}

func TestRateGatedUntilPaid(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	unpaid := withStatus(pendingBooking("b-1"), model.StatusCompleted)
	tracker := f.open(t, unpaid)

	err := tracker.Rate(context.Background(), dto.RateRequest{Rating: 5})
	assert.Equal(t, failure.ClassValidation, failure.GetClass(err))
	assert.NotContains(t, tracker.AvailableActions(), model.ActionRate)
}

func TestRateSuccess(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	paid := withStatus(pendingBooking("b-1"), model.StatusCompleted)
	paid.IsPaid = true
	tracker := f.open(t, paid)

	rated := paid
	rated.Rating = &model.Rating{Score: 5, Comment: "quick and careful"}

	f.repo.EXPECT().
		Rate(gomock.Any(), "b-1", dto.RateRequest{Rating: 5, Comment: "quick and careful"}).
		Return(rated, nil)

	err := tracker.Rate(context.Background(), dto.RateRequest{Rating: 5, Comment: "quick and careful"})
	assert.NoError(t, err)
	assert.True(t, tracker.Snapshot().Rated())
	assert.Empty(t, tracker.AvailableActions())
}

func TestPayCashSetsAwaitingConfirmation(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	completed := withStatus(pendingBooking("b-1"), model.StatusCompleted)
	tracker := f.open(t, completed)

	f.repo.EXPECT().
		Pay(gomock.Any(), "b-1", dto.PayRequest{PaymentMethod: constant.PaymentMethodCash}).
		Return(completed, nil)

	err := tracker.Pay(context.Background(), dto.PayRequest{PaymentMethod: constant.PaymentMethodCash})
	assert.NoError(t, err)
	assert.True(t, tracker.AwaitingCashConfirmation())
}

func TestPayMpesaReflectsPaidSnapshot(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	completed := withStatus(pendingBooking("b-1"), model.StatusCompleted)
	tracker := f.open(t, completed)

	paid := completed
	paid.IsPaid = true

	f.repo.EXPECT().
		Pay(gomock.Any(), "b-1", dto.PayRequest{PaymentMethod: constant.PaymentMethodMpesa}).
		Return(paid, nil)

	err := tracker.Pay(context.Background(), dto.PayRequest{PaymentMethod: constant.PaymentMethodMpesa})
	assert.NoError(t, err)
	assert.False(t, tracker.AwaitingCashConfirmation())
	assert.True(t, tracker.Snapshot().IsPaid)
	assert.Equal(t, []model.Action{model.ActionRate}, tracker.AvailableActions())
}

func TestPayRejectsUnknownMethod(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	completed := withStatus(pendingBooking("b-1"), model.StatusCompleted)
	tracker := f.open(t, completed)

	err := tracker.Pay(context.Background(), dto.PayRequest{PaymentMethod: "BARTER"})
	assert.Equal(t, failure.ClassValidation, failure.GetClass(err))
}

func TestPositionKeepsLatestSample(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)
	tracker := f.open(t, withStatus(pendingBooking("b-1"), model.StatusInProgress))

	f.dialer.location.push(t, `{"latitude": -6.70, "longitude": 39.10}`)
	f.dialer.location.push(t, `{"latitude": "oops"}`)
	f.dialer.location.push(t, `{"latitude": -6.75, "longitude": 39.20}`)
	f.dialer.location.push(t, `{"latitude": -6.81, "longitude": 39.28}`)

	assert.Eventually(t, func() bool {
		position, ok := tracker.Position()
		return ok && position == model.LivePosition{Latitude: -6.81, Longitude: 39.28}
	}, time.Second, 10*time.Millisecond)
}

func TestChatArrivalOrder(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)
	tracker := f.open(t, withStatus(pendingBooking("b-1"), model.StatusInProgress))

	f.dialer.chat.push(t, `{"message": "on my way", "sender": "juma", "timestamp": "2026-08-30T10:00:00Z"}`)
	f.dialer.chat.push(t, `{"sender": "ghost"}`)
	f.dialer.chat.push(t, `{"message": "thanks", "sender": "amina", "timestamp": "2026-08-30T10:01:00Z"}`)

	assert.Eventually(t, func() bool {
		return len(tracker.Messages()) == 2
	}, time.Second, 10*time.Millisecond)

	messages := tracker.Messages()
	assert.Equal(t, "on my way", messages[0].Body)
	assert.Equal(t, "juma", messages[0].Sender)
	assert.Equal(t, "thanks", messages[1].Body)
}

func TestSendChatRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)
	tracker := f.open(t, withStatus(pendingBooking("b-1"), model.StatusInProgress))

	err := tracker.SendChat(context.Background(), "   ")
	assert.Equal(t, failure.ClassValidation, failure.GetClass(err))
	assert.Zero(t, f.dialer.chat.sentCount())

	assert.NoError(t, tracker.SendChat(context.Background(), "karibu"))
	assert.Equal(t, 1, f.dialer.chat.sentCount())
}

func TestProviderReportsLocationWhileInProgress(t *testing.T) {
	f := newFixture(t, constant.RoleProvider)
	tracker := f.open(t, withStatus(pendingBooking("b-1"), model.StatusInProgress))

	f.watcher.samples <- geo.Sample{Latitude: -6.79, Longitude: 39.21}
	f.watcher.samples <- geo.Sample{Latitude: -6.78, Longitude: 39.22}

	assert.Eventually(t, func() bool {
		return f.dialer.location.sentCount() == 2
	}, time.Second, 10*time.Millisecond)

	tracker.Close()

	// Samples produced after close never leave the device.
	select {
	case f.watcher.samples <- geo.Sample{Latitude: -6.77, Longitude: 39.23}:
	default:
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, f.dialer.location.sentCount())
}

func TestCustomerNeverReportsLocation(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)
	tracker := f.open(t, withStatus(pendingBooking("b-1"), model.StatusInProgress))

	f.watcher.samples <- geo.Sample{Latitude: -6.79, Longitude: 39.21}

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.dialer.location.sentCount())

	tracker.Close()
}

func TestReportingStopsWhenJobCompletes(t *testing.T) {
	f := newFixture(t, constant.RoleProvider)

	inProgress := withStatus(pendingBooking("b-1"), model.StatusInProgress)
	tracker := f.open(t, inProgress)

	f.watcher.samples <- geo.Sample{Latitude: -6.79, Longitude: 39.21}
	assert.Eventually(t, func() bool {
		return f.dialer.location.sentCount() == 1
	}, time.Second, 10*time.Millisecond)

	f.repo.EXPECT().
		CompleteJob(gomock.Any(), "b-1").
		Return(withStatus(inProgress, model.StatusCompleted), nil)

	assert.NoError(t, tracker.Do(context.Background(), model.ActionCompleteJob))

	// The watch context is cancelled, so later samples are discarded.
	select {
	case f.watcher.samples <- geo.Sample{Latitude: -6.78, Longitude: 39.22}:
	default:
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.dialer.location.sentCount())
}

func TestGeolocationFailureEmitsEvent(t *testing.T) {
	f := newFixture(t, constant.RoleProvider)
	f.watcher.err = failure.Geolocation(errors.New("position unavailable"))

	tracker := f.open(t, withStatus(pendingBooking("b-1"), model.StatusInProgress))

	assert.Eventually(t, func() bool {
		for {
			select {
			case event := <-tracker.Events():
				if event == EventGeolocation {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)

	// The rest of the view stays interactive.
	assert.Equal(t, []model.Action{model.ActionCompleteJob}, tracker.AvailableActions())
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)
	tracker := f.open(t, pendingBooking("b-1"))

	tracker.Close()
	tracker.Close()

	_, open := <-tracker.Events()
	for open {
		_, open = <-tracker.Events()
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	expected := []model.Booking{
		pendingBooking("b-1"),
		withStatus(pendingBooking("b-2"), model.StatusCompleted),
	}

	f.repo.EXPECT().History(gomock.Any()).Return(expected, nil)

	got, err := f.svc.History(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestCreateValidatesBeforeNetwork(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	_, err := f.svc.Create(context.Background(), dto.CreateBookingRequest{})
	assert.Equal(t, failure.ClassValidation, failure.GetClass(err))
}

func TestCreateSuccess(t *testing.T) {
	f := newFixture(t, constant.RoleCustomer)

	req := dto.CreateBookingRequest{
		ServiceID: 7,
		Latitude:  -6.7924,
		Longitude: 39.2083,
	}

	f.repo.EXPECT().Create(gomock.Any(), req).Return(pendingBooking("b-9"), nil)

	created, err := f.svc.Create(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, "b-9", created.ID)
}
