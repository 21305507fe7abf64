package dto

import (
	"quickassist/internal/domains/session/model"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type IdentityResponse struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	UserType    string  `json:"user_type"`
	IsActive    bool    `json:"is_active"`
}

func (r *IdentityResponse) ToModel() model.Identity {
	return model.Identity{
		ID:          r.ID,
		Username:    r.Username,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		UserType:    r.UserType,
		IsActive:    r.IsActive,
	}
}
