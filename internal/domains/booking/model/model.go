package model

import (
	"time"
)

const (
	EntityName = "booking"
)

// Status is a strictly server-owned enumeration. The client never
// assigns a status directly; it only requests transitions and
// reflects the snapshot the server returns.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Action is one of the transition requests a user may issue.
type Action string

const (
	ActionAccept      Action = "accept"
	ActionDecline     Action = "decline"
	ActionStartJob    Action = "start_job"
	ActionCompleteJob Action = "complete_job"
	ActionPay         Action = "pay"
	ActionRate        Action = "rate"
)

type ProviderProfile struct {
	LastKnownLatitude  *float64
	LastKnownLongitude *float64
	AverageRating      float64
}

type Party struct {
	ID       int64
	Username string
	UserType string
	Profile  *ProviderProfile
}

type Service struct {
	ID          int64
	Name        string
	Description string
}

type Rating struct {
	Score   int
	Comment string
}

type Booking struct {
	ID       string
	Status   Status
	Customer *Party
	Provider *Party
	Service  *Service

	// The booking origin is the fixed customer coordinate set at
	// creation. It is never overwritten by channel data.
	OriginLatitude  float64
	OriginLongitude float64

	Amount *float64
	IsPaid bool
	Rating *Rating

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// Rated reports whether a rating has been recorded.
func (b Booking) Rated() bool {
	return b.Rating != nil
}

// ProviderLastKnown returns the snapshot's last-known provider
// location, the seed for the live position before any channel data.
func (b Booking) ProviderLastKnown() (LivePosition, bool) {
	if b.Provider == nil || b.Provider.Profile == nil {
		return LivePosition{}, false
	}

	profile := b.Provider.Profile
	if profile.LastKnownLatitude == nil || profile.LastKnownLongitude == nil {
		return LivePosition{}, false
	}

	return LivePosition{
		Latitude:  *profile.LastKnownLatitude,
		Longitude: *profile.LastKnownLongitude,
	}, true
}

// LivePosition is ephemeral: only the latest value matters, no
// history is retained.
type LivePosition struct {
	Latitude  float64
	Longitude float64
}

// ChatMessage is ordered by arrival at the client, not by timestamp.
type ChatMessage struct {
	Sender    string
	Body      string
	Timestamp time.Time
}
