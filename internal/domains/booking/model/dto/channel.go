package dto

import (
	"errors"
	"time"

	"quickassist/internal/domains/booking/model"
)

var ErrMalformedPayload = errors.New("malformed channel payload")

// LocationPayload is the inbound location-channel schema. Fields are
// pointers so missing keys are detected and the payload rejected
// instead of merging zero coordinates into view state.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p *LocationPayload) ToModel() (model.LivePosition, error) {
	if p.Latitude == nil || p.Longitude == nil {
		return model.LivePosition{}, ErrMalformedPayload
	}

	return model.LivePosition{
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
	}, nil
}

// ChatPayload is the inbound chat-channel schema.
type ChatPayload struct {
	Message   *string `json:"message"`
	Sender    *string `json:"sender"`
	Timestamp string  `json:"timestamp"`
}

func (p *ChatPayload) ToModel() (model.ChatMessage, error) {
	if p.Message == nil || p.Sender == nil {
		return model.ChatMessage{}, ErrMalformedPayload
	}

	// Arrival order is the ordering proxy; a bad timestamp only
	// degrades display, it does not reject the message.
	timestamp, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		timestamp = time.Time{}
	}

	return model.ChatMessage{
		Sender:    *p.Sender,
		Body:      *p.Message,
		Timestamp: timestamp,
	}, nil
}

// ChatSendPayload is the outbound chat schema; sender and timestamp
// are assigned server-side.
type ChatSendPayload struct {
	Message string `json:"message"`
}

// LocationSendPayload is the outbound provider location schema.
type LocationSendPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
