package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"quickassist/infras/otel"
	"quickassist/infras/ws"
	"quickassist/internal/domains/booking/model"
	"quickassist/internal/domains/booking/model/dto"
	"quickassist/shared/constant"
)

// Manager owns exactly two logical subscriptions per active booking
// view: the location channel and the chat channel. The two are
// independent; closing one never affects the other.
type Manager interface {
	Subscribe(ctx context.Context, bookingID string) *Subscription
}

type managerImpl struct {
	dialer ws.Dialer
	otel   otel.Otel
}

func New(dialer ws.Dialer, otel otel.Otel) Manager {
	return &managerImpl{
		dialer: dialer,
		otel:   otel,
	}
}

func (m *managerImpl) Subscribe(ctx context.Context, bookingID string) *Subscription {
	_, scope := m.otel.NewScope(ctx, constant.OtelRealtimeScopeName, constant.OtelRealtimeScopeName+".Subscribe")
	defer scope.End()

	scope.SetAttribute("booking.id", bookingID)

	sub := &Subscription{
		bookingID: bookingID,
		location:  m.dialer.Dial(ctx, fmt.Sprintf("/location/%s/", bookingID)),
		chat:      m.dialer.Dial(ctx, fmt.Sprintf("/chat/%s/", bookingID)),
		locations: make(chan model.LivePosition, 16),
		messages:  make(chan model.ChatMessage, 16),
	}

	go sub.pumpLocations()
	go sub.pumpChat()

	return sub
}

// Subscription is the pair of live channels for one booking. Every
// Subscribe is matched by exactly one Close on every exit path.
type Subscription struct {
	bookingID string

	location ws.Channel
	chat     ws.Channel

	locations chan model.LivePosition
	messages  chan model.ChatMessage

	closeOnce sync.Once
}

// Locations yields validated position updates in arrival order. The
// channel closes when the location stream terminates.
func (s *Subscription) Locations() <-chan model.LivePosition {
	return s.locations
}

// Messages yields validated chat messages in arrival order.
func (s *Subscription) Messages() <-chan model.ChatMessage {
	return s.messages
}

// SendLocation emits one provider position sample.
func (s *Subscription) SendLocation(latitude, longitude float64) error {
	return s.location.Send(dto.LocationSendPayload{
		Latitude:  latitude,
		Longitude: longitude,
	})
}

// SendChat emits one outbound chat message; the server stamps the
// sender and timestamp.
func (s *Subscription) SendChat(text string) error {
	return s.chat.Send(dto.ChatSendPayload{Message: text})
}

// Err reports the first terminal channel failure, if any.
func (s *Subscription) Err() error {
	if err := s.location.Err(); err != nil {
		return err
	}

	return s.chat.Err()
}

// Close releases both connections. Idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.location.Close()
		s.chat.Close()
	})
}

func (s *Subscription) pumpLocations() {
	defer close(s.locations)

	for raw := range s.location.Messages() {
		var payload dto.LocationPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Warn().Err(err).Str("booking_id", s.bookingID).Msg("dropping undecodable location payload")

			continue
		}

		position, err := payload.ToModel()
		if err != nil {
			log.Warn().Err(err).Str("booking_id", s.bookingID).Msg("dropping malformed location payload")

			continue
		}

		s.locations <- position
	}
}

func (s *Subscription) pumpChat() {
	defer close(s.messages)

	for raw := range s.chat.Messages() {
		var payload dto.ChatPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Warn().Err(err).Str("booking_id", s.bookingID).Msg("dropping undecodable chat payload")

			continue
		}

		message, err := payload.ToModel()
		if err != nil {
			log.Warn().Err(err).Str("booking_id", s.bookingID).Msg("dropping malformed chat payload")

			continue
		}

		s.messages <- message
	}
}
