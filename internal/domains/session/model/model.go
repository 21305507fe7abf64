package model

const (
	EntityName = "session"
)

// Identity is the authenticated user as reported by the backend.
type Identity struct {
	ID          int64
	Username    string
	Email       string
	PhoneNumber *string
	FirstName   string
	LastName    string
	UserType    string
	IsActive    bool
}

// State is the tri-state readiness signal consumed by route gating.
type State int

const (
	StateLoading State = iota + 1
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}
