package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"quickassist/infras/geo"
	"quickassist/infras/otel"
	"quickassist/internal/domains/booking/model"
	"quickassist/internal/domains/booking/model/dto"
	"quickassist/internal/domains/booking/repository"
	"quickassist/internal/domains/realtime"
	sessionService "quickassist/internal/domains/session/service"
	"quickassist/permissions"
	"quickassist/shared/constant"
	"quickassist/shared/failure"
	"quickassist/shared/validator"
)

// Event tells the rendering layer which slice of view state changed.
type Event string

const (
	EventSnapshot    Event = "snapshot"
	EventPosition    Event = "position"
	EventChat        Event = "chat"
	EventChannelDown Event = "channel_down"
	EventGeolocation Event = "geolocation_error"
)

// Booking opens tracking views and covers the booking list flows.
type Booking interface {
	Open(ctx context.Context, bookingID string) (Tracker, error)
	History(ctx context.Context) ([]model.Booking, error)
	Create(ctx context.Context, req dto.CreateBookingRequest) (model.Booking, error)
}

// Tracker is the live view model for one booking: a REST snapshot,
// streamed location deltas and chat merged into one coherent state,
// plus the status actions the current user may issue. The server is
// the sole authority over status; the tracker only requests
// transitions and reflects the returned snapshot.
type Tracker interface {
	Snapshot() model.Booking
	Origin() model.LivePosition
	Position() (model.LivePosition, bool)
	Messages() []model.ChatMessage
	AvailableActions() []model.Action
	AwaitingCashConfirmation() bool
	Events() <-chan Event

	Do(ctx context.Context, action model.Action) error
	Pay(ctx context.Context, req dto.PayRequest) error
	Rate(ctx context.Context, req dto.RateRequest) error
	SendChat(ctx context.Context, text string) error

	Close()
}

type serviceImpl struct {
	repo     repository.Booking
	realtime realtime.Manager
	session  sessionService.Session
	watcher  geo.Watcher
	rules    *permissions.RuleSet
	otel     otel.Otel
}

func New(
	repo repository.Booking,
	rt realtime.Manager,
	session sessionService.Session,
	watcher geo.Watcher,
	rules *permissions.RuleSet,
	ot otel.Otel,
) Booking {
	return &serviceImpl{
		repo:     repo,
		realtime: rt,
		session:  session,
		watcher:  watcher,
		rules:    rules,
		otel:     ot,
	}
}

// Open fetches the snapshot and brings up both realtime channels. A
// not-found failure is returned as-is so the caller can navigate away
// instead of rendering a broken view.
func (s *serviceImpl) Open(ctx context.Context, bookingID string) (_ Tracker, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Open")
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttribute("booking.id", bookingID)

	booking, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		log.Error().Err(err).Str("booking_id", bookingID).Msg("failed to load booking snapshot")

		return nil, err
	}

	// The tracker outlives the opening request; its own context is
	// cancelled exactly once, in Close.
	trackerCtx, cancel := context.WithCancel(context.Background())

	t := &trackerImpl{
		repo:    s.repo,
		watcher: s.watcher,
		rules:   s.rules,
		otel:    s.otel,
		role:    s.session.Role(),
		ctx:     trackerCtx,
		cancel:  cancel,
		booking: booking,
		events:  make(chan Event, 32),
	}

	if seed, ok := booking.ProviderLastKnown(); ok {
		t.live = &seed
	}

	t.sub = s.realtime.Subscribe(trackerCtx, booking.ID)

	t.wg.Add(2)
	go t.consumeLocations()
	go t.consumeChat()

	t.syncReporting()

	return t, nil
}

func (s *serviceImpl) History(ctx context.Context) (res []model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".History")
	defer scope.End()
	defer scope.TraceIfError(err)

	if res, err = s.repo.History(ctx); err != nil {
		log.Error().Err(err).Msg("failed to fetch booking history")

		return nil, err
	}

	return res, nil
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = validator.Validate(req); err != nil {
		return res, err
	}

	if res, err = s.repo.Create(ctx, req); err != nil {
		log.Error().Err(err).Msg("failed to create booking")

		return res, err
	}

	return res, nil
}

type trackerImpl struct {
	repo    repository.Booking
	watcher geo.Watcher
	rules   *permissions.RuleSet
	otel    otel.Otel
	role    string

	ctx    context.Context
	cancel context.CancelFunc
	sub    *realtime.Subscription

	events chan Event
	wg     sync.WaitGroup

	mu           sync.RWMutex
	booking      model.Booking
	live         *model.LivePosition
	chat         []model.ChatMessage
	awaitingCash bool
	reportCancel context.CancelFunc
	eventsClosed bool

	downOnce  sync.Once
	closeOnce sync.Once
}

func (t *trackerImpl) Snapshot() model.Booking {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.booking
}

// Origin is the fixed customer coordinate from the snapshot; channel
// data never overwrites it.
func (t *trackerImpl) Origin() model.LivePosition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return model.LivePosition{
		Latitude:  t.booking.OriginLatitude,
		Longitude: t.booking.OriginLongitude,
	}
}

// Position returns the latest streamed position, falling back to the
// snapshot's last-known provider location.
func (t *trackerImpl) Position() (model.LivePosition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.live != nil {
		return *t.live, true
	}

	return t.booking.ProviderLastKnown()
}

func (t *trackerImpl) Messages() []model.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	messages := make([]model.ChatMessage, len(t.chat))
	copy(messages, t.chat)

	return messages
}

func (t *trackerImpl) AvailableActions() []model.Action {
	t.mu.RLock()
	defer t.mu.RUnlock()

	allowed := t.rules.AllowedActions(t.role, string(t.booking.Status), t.booking.IsPaid, t.booking.Rated())

	actions := make([]model.Action, 0, len(allowed))
	for _, action := range allowed {
		actions = append(actions, model.Action(action))
	}

	return actions
}

func (t *trackerImpl) AwaitingCashConfirmation() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.awaitingCash
}

func (t *trackerImpl) Events() <-chan Event {
	return t.events
}

// Do issues one of the plain transition requests. Pay and Rate carry
// payloads and have their own entry points.
func (t *trackerImpl) Do(ctx context.Context, action model.Action) (err error) {
	ctx, scope := t.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Do")
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttribute("booking.action", string(action))

	if !t.allowed(action) {
		return failure.Validation(fmt.Sprintf("action %s is not available for this booking", action))
	}

	id := t.Snapshot().ID

	var snapshot model.Booking

	switch action {
	case model.ActionAccept:
		snapshot, err = t.repo.Accept(ctx, id)
	case model.ActionDecline:
		snapshot, err = t.repo.Decline(ctx, id)
	case model.ActionStartJob:
		snapshot, err = t.repo.StartJob(ctx, id)
	case model.ActionCompleteJob:
		snapshot, err = t.repo.CompleteJob(ctx, id)
	case model.ActionPay, model.ActionRate:
		return failure.Validation(fmt.Sprintf("action %s requires a payload", action))
	default:
		return failure.Validation(fmt.Sprintf("unknown action %s", action))
	}

	if err != nil {
		// The prior snapshot stays intact; retry is just issuing the
		// action again.
		log.Warn().Err(err).Str("booking_id", id).Str("action", string(action)).Msg("status action failed")

		return err
	}

	t.applySnapshot(snapshot)

	return nil
}

func (t *trackerImpl) Pay(ctx context.Context, req dto.PayRequest) (err error) {
	ctx, scope := t.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Pay")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = validator.Validate(req); err != nil {
		return err
	}

	if !t.allowed(model.ActionPay) {
		return failure.Validation("payment is not available for this booking")
	}

	snapshot, err := t.repo.Pay(ctx, t.Snapshot().ID, req)
	if err != nil {
		return err
	}

	if req.PaymentMethod == constant.PaymentMethodCash && !snapshot.IsPaid {
		t.mu.Lock()
		t.awaitingCash = true
		t.mu.Unlock()
	}

	t.applySnapshot(snapshot)

	return nil
}

func (t *trackerImpl) Rate(ctx context.Context, req dto.RateRequest) (err error) {
	ctx, scope := t.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Rate")
	defer scope.End()
	defer scope.TraceIfError(err)

	// A zero or out-of-range rating is blocked locally, before any
	// network call.
	if err = validator.Validate(req); err != nil {
		return err
	}

	if !t.allowed(model.ActionRate) {
		return failure.Validation("rating is not available for this booking")
	}

	snapshot, err := t.repo.Rate(ctx, t.Snapshot().ID, req)
	if err != nil {
		return err
	}

	t.applySnapshot(snapshot)

	return nil
}

func (t *trackerImpl) SendChat(ctx context.Context, text string) error {
	_, scope := t.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SendChat")
	defer scope.End()

	if strings.TrimSpace(text) == constant.Empty {
		return failure.Validation("message must not be empty")
	}

	return t.sub.SendChat(text)
}

// Close tears the view down: it stops the device-location watch,
// releases both streaming connections and abandons any in-flight REST
// call by ignoring its eventual result. Idempotent.
func (t *trackerImpl) Close() {
	t.closeOnce.Do(func() {
		t.cancel()

		t.mu.Lock()
		if t.reportCancel != nil {
			t.reportCancel()
			t.reportCancel = nil
		}
		t.mu.Unlock()

		t.sub.Close()
		t.wg.Wait()

		t.mu.Lock()
		t.eventsClosed = true
		t.mu.Unlock()

		close(t.events)
	})
}

func (t *trackerImpl) allowed(action model.Action) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.rules.Allowed(string(action), t.role, string(t.booking.Status), t.booking.IsPaid, t.booking.Rated())
}

// applySnapshot replaces the whole booking with the server's response
// and reconciles the location-reporting state. Results arriving after
// Close are discarded.
func (t *trackerImpl) applySnapshot(snapshot model.Booking) {
	if t.ctx.Err() != nil {
		return
	}

	t.mu.Lock()
	t.booking = snapshot
	t.mu.Unlock()

	t.emit(EventSnapshot)
	t.syncReporting()
}

// syncReporting starts or stops the provider's device-location watch
// so it runs exactly while role is provider and the job is in
// progress.
func (t *trackerImpl) syncReporting() {
	t.mu.Lock()
	defer t.mu.Unlock()

	shouldReport := t.role == constant.RoleProvider &&
		t.booking.Status == model.StatusInProgress &&
		t.ctx.Err() == nil

	switch {
	case shouldReport && t.reportCancel == nil:
		reportCtx, cancel := context.WithCancel(t.ctx)
		t.reportCancel = cancel

		t.wg.Add(1)
		go t.report(reportCtx)
	case !shouldReport && t.reportCancel != nil:
		t.reportCancel()
		t.reportCancel = nil
	}
}

func (t *trackerImpl) report(ctx context.Context) {
	defer t.wg.Done()

	samples, err := t.watcher.Watch(ctx)
	if err != nil {
		// The view stays interactive; only the dependent feature is
		// blocked and reported.
		log.Error().Err(err).Msg("device location watch unavailable")
		t.emit(EventGeolocation)

		return
	}

	log.Info().Str("booking_id", t.Snapshot().ID).Msg("provider location reporting started")

	for sample := range samples {
		if err := t.sub.SendLocation(sample.Latitude, sample.Longitude); err != nil {
			log.Debug().Err(err).Msg("dropping location sample, channel not writable")
		}
	}

	log.Info().Str("booking_id", t.Snapshot().ID).Msg("provider location reporting stopped")
}

func (t *trackerImpl) consumeLocations() {
	defer t.wg.Done()

	for position := range t.sub.Locations() {
		t.mu.Lock()
		current := position
		t.live = &current
		t.mu.Unlock()

		t.emit(EventPosition)
	}

	t.channelDown()
}

func (t *trackerImpl) consumeChat() {
	defer t.wg.Done()

	for message := range t.sub.Messages() {
		t.mu.Lock()
		t.chat = append(t.chat, message)
		t.mu.Unlock()

		t.emit(EventChat)
	}

	t.channelDown()
}

func (t *trackerImpl) channelDown() {
	if t.ctx.Err() != nil {
		return
	}

	t.downOnce.Do(func() {
		if t.sub.Err() != nil {
			log.Warn().Str("booking_id", t.Snapshot().ID).Msg("realtime channel unavailable")
			t.emit(EventChannelDown)
		}
	})
}

func (t *trackerImpl) emit(event Event) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.eventsClosed {
		return
	}

	select {
	case t.events <- event:
	default:
		log.Debug().Str("event", string(event)).Msg("dropping view event, consumer is behind")
	}
}
