package dto

import (
	"strconv"
	"strings"
	"time"

	"quickassist/internal/domains/booking/model"
	"quickassist/shared/constant"
)

// Decimal tolerates both quoted decimal strings and bare numbers,
// which is how the backend serializes money fields.
type Decimal float64

func (d *Decimal) UnmarshalJSON(raw []byte) error {
	trimmed := strings.Trim(string(raw), `"`)
	if trimmed == "null" || trimmed == constant.Empty {
		return nil
	}

	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return err
	}

	*d = Decimal(parsed)

	return nil
}

type ProviderProfileResponse struct {
	LastKnownLatitude  *float64 `json:"last_known_latitude"`
	LastKnownLongitude *float64 `json:"last_known_longitude"`
	AverageRating      float64  `json:"average_rating"`
}

type PartyResponse struct {
	ID       int64                    `json:"id"`
	Username string                   `json:"username"`
	UserType string                   `json:"user_type"`
	Profile  *ProviderProfileResponse `json:"provider_profile"`
}

func (p *PartyResponse) toModel() *model.Party {
	if p == nil {
		return nil
	}

	party := &model.Party{
		ID:       p.ID,
		Username: p.Username,
		UserType: p.UserType,
	}

	if p.Profile != nil {
		party.Profile = &model.ProviderProfile{
			LastKnownLatitude:  p.Profile.LastKnownLatitude,
			LastKnownLongitude: p.Profile.LastKnownLongitude,
			AverageRating:      p.Profile.AverageRating,
		}
	}

	return party
}

type ServiceResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RatingResponse struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// BookingResponse is the canonical snapshot shape. Every status
// action returns one; the latest snapshot always wins.
type BookingResponse struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Customer    *PartyResponse   `json:"customer"`
	Provider    *PartyResponse   `json:"provider"`
	Service     *ServiceResponse `json:"service"`
	Latitude    float64          `json:"booking_latitude"`
	Longitude   float64          `json:"booking_longitude"`
	Amount      *Decimal         `json:"amount"`
	IsPaid      bool             `json:"is_paid"`
	Rating      *RatingResponse  `json:"rating"`
	CreatedAt   time.Time        `json:"created_at"`
	AcceptedAt  *time.Time       `json:"accepted_at"`
	CompletedAt *time.Time       `json:"completed_at"`
}

func (r *BookingResponse) ToModel() model.Booking {
	booking := model.Booking{
		ID:              r.ID,
		Status:          model.Status(r.Status),
		Customer:        r.Customer.toModel(),
		Provider:        r.Provider.toModel(),
		OriginLatitude:  r.Latitude,
		OriginLongitude: r.Longitude,
		IsPaid:          r.IsPaid,
		CreatedAt:       r.CreatedAt,
		AcceptedAt:      r.AcceptedAt,
		CompletedAt:     r.CompletedAt,
	}

	if r.Service != nil {
		booking.Service = &model.Service{
			ID:          r.Service.ID,
			Name:        r.Service.Name,
			Description: r.Service.Description,
		}
	}

	if r.Amount != nil {
		amount := float64(*r.Amount)
		booking.Amount = &amount
	}

	if r.Rating != nil {
		booking.Rating = &model.Rating{
			Score:   r.Rating.Score,
			Comment: r.Rating.Comment,
		}
	}

	return booking
}

type CreateBookingRequest struct {
	ServiceID int64   `json:"service_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required"`
	Longitude float64 `json:"longitude" validate:"required"`
}

type PayRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=CASH M-PESA"`
}

type RateRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=500"`
}
